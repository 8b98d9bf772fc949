package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreTradeResult stores a trade result in PostgreSQL.
func (p *PostgresStorage) StoreTradeResult(ctx context.Context, result *types.TradeResult) error {
	var errText sql.NullString
	if result.Err != nil {
		errText = sql.NullString{String: result.Err.Error(), Valid: true}
	}

	query := `
		INSERT INTO trade_results (
			id, venue, order_id, tx_hash, outcome, side,
			amount, success, error, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, query,
		id,
		string(result.Venue),
		result.OrderID,
		result.TxHash,
		result.Outcome,
		string(result.Side),
		result.Amount,
		result.Success,
		errText,
		result.SubmittedAt,
	)

	if err != nil {
		return fmt.Errorf("insert trade result: %w", err)
	}

	p.logger.Debug("trade-result-stored",
		zap.String("id", id),
		zap.String("venue", string(result.Venue)),
		zap.String("order-id", result.OrderID))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
