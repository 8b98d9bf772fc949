package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/signing"
	"github.com/openpredict/tradegate/pkg/types"
)

const (
	polymarketOrderPath = "/order"

	// The CLOB rejects orders below one dollar of notional.
	polymarketMinNotional = 1.0

	// Signed orders expire a day after creation.
	polymarketOrderLifetime = 24 * time.Hour
)

// PolymarketClient builds, signs and submits orders to the Polymarket
// CLOB. Submissions carry builder-attribution headers computed over
// the exact request body.
type PolymarketClient struct {
	baseURL     string
	apiKey      string
	signer      *signing.OrderSigner
	attribution signing.AttributionSigner
	httpClient  *http.Client
	logger      *zap.Logger
}

// PolymarketConfig holds Polymarket order client configuration.
type PolymarketConfig struct {
	BaseURL     string
	APIKey      string
	Signer      *signing.OrderSigner
	Attribution signing.AttributionSigner
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewPolymarketClient creates a Polymarket order client.
func NewPolymarketClient(cfg *PolymarketConfig) (*PolymarketClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}

	if cfg.Signer == nil || cfg.Attribution == nil || cfg.APIKey == "" {
		return nil, &types.ConfigurationError{Venue: "polymarket", Missing: "order signer / attribution credentials"}
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &PolymarketClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		signer:      cfg.Signer,
		attribution: cfg.Attribution,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      cfg.Logger,
	}, nil
}

// SignedOrderJSON is the wire shape of a signed order.
type SignedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderSubmission struct {
	Order     SignedOrderJSON `json:"order"`
	Owner     string          `json:"owner"` // API key, not the maker address
	OrderType string          `json:"orderType"`
}

type clobOrderResponse struct {
	Success  bool   `json:"success"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
	ErrorMsg string `json:"errorMsg"`
}

// BuildAndSubmit signs an order for the request and posts it to the
// CLOB. The verifying domain and the order-lifetime policy follow the
// request: limit orders rest good-till-cancel, market-style orders are
// fill-or-kill.
func (c *PolymarketClient) BuildAndSubmit(ctx context.Context, req *types.TradeRequest) (*types.TradeResult, error) {
	if req.Amount < polymarketMinNotional {
		return nil, fmt.Errorf("order notional %.2f below venue minimum of %.2f",
			req.Amount, polymarketMinNotional)
	}

	// A zero price means "take whatever is there": a marketable
	// fill-or-kill order priced at the edge of the book.
	price := req.Price
	orderType := "GTC"
	if price == 0 {
		orderType = "FOK"
		if req.Side == types.SideSell {
			price = 0.01
		} else {
			price = 0.99
		}
	}

	if price <= 0 || price >= 1 {
		return nil, fmt.Errorf("price must be a probability in (0, 1), got %f", price)
	}

	tokenID := req.Market.TokenIDForOutcome(req.Outcome)
	if tokenID == "" {
		return nil, &types.SignatureError{Reason: "market has no token id for outcome " + req.Outcome}
	}

	makerAmount, takerAmount, side := orderAmounts(req.Side, req.Amount, price)
	expiration := strconv.FormatInt(time.Now().Add(polymarketOrderLifetime).Unix(), 10)

	signed, err := c.signer.SignOrder(&signing.OrderParams{
		TokenID:     tokenID,
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		Side:        side,
		Expiration:  expiration,
		NegRisk:     req.Market.NegRisk,
	})
	if err != nil {
		return nil, err
	}

	submission := orderSubmission{
		Order:     toJSONOrder(signed),
		Owner:     c.apiKey,
		OrderType: orderType,
	}

	body, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	headers, err := c.attribution.SignRequest(ctx, &signing.AttributionRequest{
		Method: http.MethodPost,
		Path:   polymarketOrderPath,
		Body:   string(body),
	})
	if err != nil {
		return nil, fmt.Errorf("sign attribution headers: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+polymarketOrderPath, bytes.NewReader(body))
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

	var orderResp clobOrderResponse
	_ = json.Unmarshal(respBody, &orderResp)

	if (resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated) ||
		(orderResp.ErrorMsg != "" && !orderResp.Success) {
		ordersSubmittedTotal.WithLabelValues("polymarket", "rejected").Inc()

		message := orderResp.ErrorMsg
		if message == "" {
			message = strings.TrimSpace(string(respBody))
		}

		return nil, &types.VenueRejectedOrderError{
			Venue:      types.VenuePolymarket,
			StatusCode: resp.StatusCode,
			Code:       orderResp.Status,
			Message:    message,
		}
	}

	ordersSubmittedTotal.WithLabelValues("polymarket", "accepted").Inc()
	c.logger.Info("polymarket-order-submitted",
		zap.String("token-id", tokenID),
		zap.String("order-id", orderResp.OrderID),
		zap.String("order-type", orderType),
		zap.Bool("neg-risk", req.Market.NegRisk))

	return &types.TradeResult{
		Success:     true,
		Venue:       types.VenuePolymarket,
		OrderID:     orderResp.OrderID,
		Outcome:     req.Outcome,
		Side:        req.Side,
		Amount:      req.Amount,
		SubmittedAt: time.Now(),
	}, nil
}

// orderAmounts converts notional and price into raw maker/taker
// amounts at the venue's 6-decimal precision. Buying spends USDC for
// outcome tokens; selling is the reverse.
func orderAmounts(side types.Side, amount, price float64) (string, string, model.Side) {
	shares := amount / price

	if side == types.SideSell {
		return usdToRawAmount(shares), usdToRawAmount(amount), model.SELL
	}

	return usdToRawAmount(amount), usdToRawAmount(shares), model.BUY
}

func toJSONOrder(order *model.SignedOrder) SignedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

func usdToRawAmount(usd float64) string {
	return strconv.FormatInt(int64(usd*1_000_000), 10)
}
