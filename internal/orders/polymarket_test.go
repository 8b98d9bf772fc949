package orders

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/signing"
	"github.com/openpredict/tradegate/pkg/types"
)

// Well-known throwaway key (hardhat account #0); never funded.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testProxy = "0x2222222222222222222222222222222222222222"

func testPolymarketClient(t *testing.T, baseURL string) *PolymarketClient {
	t.Helper()

	orderSigner, err := signing.NewOrderSigner(testPrivateKey, testProxy, int(model.POLY_PROXY))
	require.NoError(t, err)

	secret := base64.URLEncoding.EncodeToString([]byte("secret"))
	attribution, err := signing.NewLocalAttributionSigner(orderSigner.Address(), "api-key", secret, "pass")
	require.NoError(t, err)

	client, err := NewPolymarketClient(&PolymarketConfig{
		BaseURL:     baseURL,
		APIKey:      "api-key",
		Signer:      orderSigner,
		Attribution: attribution,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)

	return client
}

func polymarketMarket(negRisk bool) *types.Market {
	return &types.Market{
		Venue:      types.VenuePolymarket,
		YesTokenID: "1111",
		NoTokenID:  "2222",
		NegRisk:    negRisk,
	}
}

func TestOrderAmounts(t *testing.T) {
	tests := []struct {
		name      string
		side      types.Side
		amount    float64
		price     float64
		wantMaker string
		wantTaker string
		wantSide  model.Side
	}{
		{
			name: "buy_spends_usdc", side: types.SideBuy, amount: 10, price: 0.5,
			wantMaker: "10000000", wantTaker: "20000000", wantSide: model.BUY,
		},
		{
			name: "sell_spends_shares", side: types.SideSell, amount: 10, price: 0.5,
			wantMaker: "20000000", wantTaker: "10000000", wantSide: model.SELL,
		},
		{
			name: "buy_at_long_odds", side: types.SideBuy, amount: 4, price: 0.04,
			wantMaker: "4000000", wantTaker: "100000000", wantSide: model.BUY,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maker, taker, side := orderAmounts(tt.side, tt.amount, tt.price)
			assert.Equal(t, tt.wantMaker, maker)
			assert.Equal(t, tt.wantTaker, taker)
			assert.Equal(t, tt.wantSide, side)
		})
	}
}

func TestPolymarketBuildAndSubmit(t *testing.T) {
	var submitted orderSubmission

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, polymarketOrderPath, r.URL.Path)

		// Attribution headers must be present on order submissions.
		assert.NotEmpty(t, r.Header.Get(signing.AttrAPIKeyHeader))
		assert.NotEmpty(t, r.Header.Get(signing.AttrSignatureHeader))
		assert.NotEmpty(t, r.Header.Get(signing.AttrTimestampHeader))
		assert.NotEmpty(t, r.Header.Get(signing.AttrPassphraseHeader))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"orderID":"0xorder1","status":"live"}`))
	}))
	defer srv.Close()

	client := testPolymarketClient(t, srv.URL)

	result, err := client.BuildAndSubmit(context.Background(), &types.TradeRequest{
		Market:  polymarketMarket(false),
		Outcome: "YES",
		Amount:  10,
		Side:    types.SideBuy,
		Price:   0.5,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "0xorder1", result.OrderID)

	// Order wiring: owner is the API key, maker is the proxy, the
	// signature-type discriminant matches the proxy scheme.
	assert.Equal(t, "api-key", submitted.Owner)
	assert.Equal(t, "GTC", submitted.OrderType)
	assert.Equal(t, testProxy, submitted.Order.Maker)
	assert.Equal(t, int(model.POLY_PROXY), submitted.Order.SignatureType)
	assert.Equal(t, "1111", submitted.Order.TokenID)
	assert.Equal(t, "10000000", submitted.Order.MakerAmount)
	assert.Equal(t, "20000000", submitted.Order.TakerAmount)
	assert.NotZero(t, submitted.Order.Salt)
	assert.NotEmpty(t, submitted.Order.Signature)
}

func TestPolymarketMarketOrderIsFOK(t *testing.T) {
	var submitted orderSubmission

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"orderID":"0xorder2"}`))
	}))
	defer srv.Close()

	client := testPolymarketClient(t, srv.URL)

	_, err := client.BuildAndSubmit(context.Background(), &types.TradeRequest{
		Market:  polymarketMarket(false),
		Outcome: "NO",
		Amount:  10,
		Side:    types.SideBuy,
		Price:   0, // market-style
	})
	require.NoError(t, err)
	assert.Equal(t, "FOK", submitted.OrderType)
	assert.Equal(t, "2222", submitted.Order.TokenID)
}

func TestPolymarketSaltsAreFresh(t *testing.T) {
	salts := make(map[int64]struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sub orderSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))

		_, dup := salts[sub.Order.Salt]
		assert.False(t, dup, "salt reused across orders")
		salts[sub.Order.Salt] = struct{}{}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"orderID":"x"}`))
	}))
	defer srv.Close()

	client := testPolymarketClient(t, srv.URL)

	for i := 0; i < 5; i++ {
		_, err := client.BuildAndSubmit(context.Background(), &types.TradeRequest{
			Market:  polymarketMarket(false),
			Outcome: "YES",
			Amount:  10,
			Side:    types.SideBuy,
			Price:   0.5,
		})
		require.NoError(t, err)
	}
}

func TestPolymarketBelowMinimumNeverSigns(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := testPolymarketClient(t, srv.URL)

	_, err := client.BuildAndSubmit(context.Background(), &types.TradeRequest{
		Market:  polymarketMarket(false),
		Outcome: "YES",
		Amount:  0.5,
		Side:    types.SideBuy,
		Price:   0.5,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below venue minimum")
	assert.Zero(t, calls, "rejected orders must not reach the network")
}

func TestPolymarketRejectionIsVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"status":"INVALID_ORDER_NOT_ENOUGH_BALANCE","errorMsg":"not enough balance / allowance"}`))
	}))
	defer srv.Close()

	client := testPolymarketClient(t, srv.URL)

	_, err := client.BuildAndSubmit(context.Background(), &types.TradeRequest{
		Market:  polymarketMarket(false),
		Outcome: "YES",
		Amount:  10,
		Side:    types.SideBuy,
		Price:   0.5,
	})
	require.Error(t, err)

	var rejected *types.VenueRejectedOrderError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, types.ErrNotEnoughBalance, rejected.Code)
	assert.Equal(t, "not enough balance / allowance", rejected.Message)
}
