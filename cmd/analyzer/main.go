package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vitos/paper_trading_engine/internal/infrastructure/storage"
	"github.com/vitos/paper_trading_engine/internal/usecase"
	"go.uber.org/zap"
)

const fillLimit = 10000

func main() {
	dbPath := "engine.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Printf("Failed to open journal %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer store.Close()

	analyzer := usecase.NewJournalAnalyzer(store, zap.NewNop())
	summaries, err := analyzer.AgentSummaries(context.Background(), fillLimit)
	if err != nil {
		fmt.Printf("Failed to analyze journal: %v\n", err)
		os.Exit(1)
	}

	if len(summaries) == 0 {
		fmt.Printf("No fills recorded in %s yet.\n", dbPath)
		return
	}

	totalFills := 0
	for _, s := range summaries {
		totalFills += s.Trades
	}

	fmt.Printf("Journal: %s (%d fills, %d agents)\n\n", dbPath, totalFills, len(summaries))
	fmt.Printf("%-12s | %-6s | %-6s | %-12s | %-14s | %-10s | %-12s | %s\n",
		"Agent", "Buys", "Sells", "Volume", "Notional", "Fees", "PnL", "Equity")
	fmt.Println("---------------------------------------------------------------------------------------------")

	for _, s := range summaries {
		fmt.Printf("%-12s | %-6d | %-6d | %-12s | %-14s | %-10s | %-12s | %s\n",
			s.AgentID, s.Buys, s.Sells,
			s.Volume.String(), s.Notional.String(), s.Fees.String(),
			s.RealizedPnL.String(), s.LastEquity.String())
	}
}
