package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/pkg/types"
)

func testTradeResult() *types.TradeResult {
	return &types.TradeResult{
		Success:     true,
		Venue:       types.VenuePolymarket,
		OrderID:     "0xorder1",
		Outcome:     "YES",
		Side:        types.SideBuy,
		Amount:      50,
		SubmittedAt: time.Now(),
	}
}

// TestConsoleStorage tests the console storage implementation
func TestConsoleStorage_New(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	storage := NewConsoleStorage(logger)

	if storage == nil {
		t.Fatal("expected non-nil storage")
	}

	if storage.logger == nil {
		t.Error("expected non-nil logger")
	}
}

func TestConsoleStorage_StoreTradeResult(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	result := testTradeResult()
	ctx := context.Background()

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := storage.StoreTradeResult(ctx, result)

	// Restore stdout
	w.Close()
	os.Stdout = oldStdout

	// Read captured output
	var buf bytes.Buffer
	io.Copy(&buf, r)
	output := buf.String()

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("TRADE SUBMITTED")) {
		t.Error("expected output to contain 'TRADE SUBMITTED'")
	}

	if !bytes.Contains([]byte(output), []byte(result.OrderID)) {
		t.Errorf("expected output to contain order id %s", result.OrderID)
	}

	if !bytes.Contains([]byte(output), []byte("polymarket")) {
		t.Error("expected output to contain the venue")
	}
}

func TestConsoleStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	err := storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}

// TestPostgresStorage tests the PostgreSQL storage implementation using sqlmock
func TestPostgresStorage_StoreTradeResult(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	result := testTradeResult()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO trade_results").
		WithArgs(
			sqlmock.AnyArg(), // generated id
			string(result.Venue),
			result.OrderID,
			result.TxHash,
			result.Outcome,
			string(result.Side),
			result.Amount,
			result.Success,
			sqlmock.AnyArg(), // nullable error text
			sqlmock.AnyArg(), // submitted_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreTradeResult(ctx, result)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreFailedTrade(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	result := testTradeResult()
	result.Success = false
	result.OrderID = ""
	result.Err = errors.New("polymarket rejected order: not enough balance / allowance")

	mock.ExpectExec("INSERT INTO trade_results").
		WithArgs(
			sqlmock.AnyArg(),
			string(result.Venue),
			"",
			"",
			result.Outcome,
			string(result.Side),
			result.Amount,
			false,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := storage.StoreTradeResult(context.Background(), result); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_InsertError(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	mock.ExpectExec("INSERT INTO trade_results").
		WillReturnError(errors.New("connection reset"))

	err = storage.StoreTradeResult(context.Background(), testTradeResult())
	if err == nil {
		t.Error("expected an error from a failed insert")
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	mock.ExpectClose()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	if err := storage.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}
