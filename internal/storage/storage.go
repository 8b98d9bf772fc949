package storage

import (
	"context"

	"github.com/openpredict/tradegate/pkg/types"
)

// Storage is the interface for persisting trade results.
type Storage interface {
	// StoreTradeResult stores one submitted trade's outcome.
	StoreTradeResult(ctx context.Context, result *types.TradeResult) error

	// Close closes the storage connection.
	Close() error
}
