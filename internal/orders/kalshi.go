package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/signing"
	"github.com/openpredict/tradegate/pkg/types"
)

const (
	kalshiOrdersPath  = "/trade-api/v2/portfolio/orders"
	kalshiBalancePath = "/trade-api/v2/portfolio/balance"

	// Kalshi trades whole contracts; one is the venue minimum.
	kalshiMinContracts = 1
)

// KalshiClient builds, signs and submits orders to Kalshi.
type KalshiClient struct {
	baseURL    string
	signer     *signing.KalshiSigner
	httpClient *http.Client
	logger     *zap.Logger
}

// KalshiConfig holds Kalshi order client configuration.
type KalshiConfig struct {
	BaseURL string
	Signer  *signing.KalshiSigner
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewKalshiClient creates a Kalshi order client.
func NewKalshiClient(cfg *KalshiConfig) (*KalshiClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}

	if cfg.Signer == nil {
		return nil, &types.ConfigurationError{Venue: "kalshi", Missing: "request signer"}
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &KalshiClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		signer:     cfg.Signer,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

type kalshiOrderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Side          string `json:"side"`   // "yes" or "no"
	Action        string `json:"action"` // "buy" or "sell"
	Count         int    `json:"count"`
	Type          string `json:"type"`            // "market" or "limit"
	Price         int    `json:"price,omitempty"` // integer cents, limit only
}

type kalshiOrderResponse struct {
	Order struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	} `json:"order"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type kalshiBalanceResponse struct {
	Balance int64 `json:"balance"` // cents
}

// BuildAndSubmit constructs a Kalshi order from the request, signs the
// HTTP call and submits it. The contract count is derived from the
// notional amount and unit price; orders below the venue minimum are
// rejected before anything is signed.
func (c *KalshiClient) BuildAndSubmit(ctx context.Context, req *types.TradeRequest) (*types.TradeResult, error) {
	order, err := c.buildOrder(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	timestamp := time.Now().UnixMilli()

	headers, err := c.signer.Headers(timestamp, http.MethodPost, kalshiOrdersPath)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+kalshiOrdersPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var orderResp kalshiOrderResponse
	_ = json.Unmarshal(respBody, &orderResp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		ordersSubmittedTotal.WithLabelValues("kalshi", "rejected").Inc()

		message := orderResp.Error.Message
		if message == "" {
			message = strings.TrimSpace(string(respBody))
		}

		return nil, &types.VenueRejectedOrderError{
			Venue:      types.VenueKalshi,
			StatusCode: resp.StatusCode,
			Code:       orderResp.Error.Code,
			Message:    message,
		}
	}

	ordersSubmittedTotal.WithLabelValues("kalshi", "accepted").Inc()
	c.logger.Info("kalshi-order-submitted",
		zap.String("ticker", order.Ticker),
		zap.String("order-id", orderResp.Order.OrderID),
		zap.Int("count", order.Count))

	return &types.TradeResult{
		Success:     true,
		Venue:       types.VenueKalshi,
		OrderID:     orderResp.Order.OrderID,
		Outcome:     req.Outcome,
		Side:        req.Side,
		Amount:      req.Amount,
		SubmittedAt: time.Now(),
	}, nil
}

func (c *KalshiClient) buildOrder(req *types.TradeRequest) (*kalshiOrderRequest, error) {
	if req.Market == nil || req.Market.Ticker == "" {
		return nil, &types.SignatureError{Reason: "market ticker is required"}
	}

	side := "no"
	if strings.EqualFold(req.Outcome, "yes") {
		side = "yes"
	}

	action := "buy"
	if req.Side == types.SideSell {
		action = "sell"
	}

	order := &kalshiOrderRequest{
		Ticker:        req.Market.Ticker,
		ClientOrderID: uuid.NewString(),
		Side:          side,
		Action:        action,
	}

	if req.Price > 0 {
		priceCents := int(math.Round(req.Price * 100))
		if priceCents < 1 || priceCents > 99 {
			return nil, fmt.Errorf("limit price must be between 1 and 99 cents, got %d", priceCents)
		}

		order.Type = "limit"
		order.Price = priceCents
		order.Count = int(req.Amount / req.Price)
	} else {
		// Worst-case fill for a market order is $1 per contract.
		order.Type = "market"
		order.Count = int(req.Amount)
	}

	if order.Count < kalshiMinContracts {
		return nil, fmt.Errorf("order size %d below venue minimum of %d contract",
			order.Count, kalshiMinContracts)
	}

	return order, nil
}

// Balance fetches the available trading balance in USD.
func (c *KalshiClient) Balance(ctx context.Context) (float64, error) {
	timestamp := time.Now().UnixMilli()

	headers, err := c.signer.Headers(timestamp, http.MethodGet, kalshiBalancePath)
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+kalshiBalancePath, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	for name, value := range headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("balance API error (status %d): %s", resp.StatusCode, string(body))
	}

	var balanceResp kalshiBalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balanceResp); err != nil {
		return 0, fmt.Errorf("parse balance response: %w", err)
	}

	return float64(balanceResp.Balance) / 100, nil
}
