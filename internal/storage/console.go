package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openpredict/tradegate/pkg/types"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreTradeResult pretty-prints a trade result to console.
func (c *ConsoleStorage) StoreTradeResult(ctx context.Context, result *types.TradeResult) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if result.Success {
		fmt.Printf("✅ TRADE SUBMITTED\n")
	} else {
		fmt.Printf("❌ TRADE FAILED\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Venue:    %s\n", result.Venue)
	fmt.Printf("Side:     %s %s\n", result.Side, result.Outcome)
	fmt.Printf("Amount:   $%.2f\n", result.Amount)
	fmt.Printf("Time:     %s\n", result.SubmittedAt.Format("2006-01-02 15:04:05"))
	if result.OrderID != "" {
		fmt.Printf("Order:    %s\n", result.OrderID)
	}
	if result.TxHash != "" {
		fmt.Printf("Tx:       %s\n", result.TxHash)
	}
	if result.Err != nil {
		fmt.Printf("Error:    %v\n", result.Err)
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
