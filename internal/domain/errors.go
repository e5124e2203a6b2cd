package domain

import "errors"

// Sentinel errors returned by the engine. Callers match them with
// errors.Is; the wrapped message carries the offending IDs and values.
var (
	ErrValidation           = errors.New("invalid order request")
	ErrUnknownSymbol        = errors.New("unknown symbol")
	ErrUnknownAgent         = errors.New("unknown agent")
	ErrInactiveAgent        = errors.New("agent not active")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrOrderNotFound        = errors.New("order not found")
)
