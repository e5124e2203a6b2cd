package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/paper_trading_engine/internal/infrastructure/logger"
	"github.com/vitos/paper_trading_engine/internal/infrastructure/storage"
	"github.com/vitos/paper_trading_engine/internal/metrics"
	"github.com/vitos/paper_trading_engine/internal/usecase"
	"github.com/vitos/paper_trading_engine/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine struct {
		TickIntervalMs int     `yaml:"tick_interval_ms"`
		Volatility     float64 `yaml:"volatility"`
		FeeRate        float64 `yaml:"fee_rate"`
		Seed           int64   `yaml:"seed"`
	} `yaml:"engine"`
	Symbols []usecase.SymbolConfig `yaml:"symbols"`
	Agents  []usecase.AgentConfig  `yaml:"agents"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "engine.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Build Engine
	tickMs := cfg.Engine.TickIntervalMs
	if tickMs == 0 {
		tickMs = 1000 // Default
	}
	volatility := cfg.Engine.Volatility
	if volatility == 0 {
		volatility = 0.02
	}
	engineCfg := usecase.Config{
		TickInterval: time.Duration(tickMs) * time.Millisecond,
		Volatility:   volatility,
		FeeRate:      cfg.Engine.FeeRate,
		Seed:         cfg.Engine.Seed,
		Symbols:      cfg.Symbols,
		Agents:       cfg.Agents,
	}
	engine, err := usecase.New(engineCfg, usecase.SystemClock(), log)
	if err != nil {
		log.Fatal("Failed to build engine", zap.Error(err))
	}

	// 5. Attach Subscribers
	recorder := usecase.NewTradeRecorder(store, log)
	recorder.Attach(engine.Notifier())
	metrics.Attach(engine.Notifier())

	// 6. Start Engine
	if err := engine.Start(); err != nil {
		log.Fatal("Failed to start engine", zap.Error(err))
	}

	// 7. Init Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080 // Default
	}
	server := web.NewServer(port, engine, store, log)

	// 8. Start Server
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	engine.Stop()
}
