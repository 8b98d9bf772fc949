package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/tradegate/pkg/types"
)

func resetTradeFlags() {
	tradeVenue = ""
	tradeTicker = ""
	tradeYesToken = ""
	tradeNoToken = ""
	tradeNegRisk = false
	tradeOutcome = "YES"
	tradeSide = "buy"
	tradeAmount = 0
	tradePrice = 0
}

func TestTradeRequestFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		wantErr string
		check   func(t *testing.T, req *types.TradeRequest)
	}{
		{
			name: "kalshi_limit_buy",
			setup: func() {
				tradeVenue = "kalshi"
				tradeTicker = "FED-25DEC"
				tradeAmount = 50
				tradePrice = 0.4
			},
			check: func(t *testing.T, req *types.TradeRequest) {
				assert.Equal(t, types.VenueKalshi, req.Market.Venue)
				assert.Equal(t, "FED-25DEC", req.Market.Ticker)
				assert.Equal(t, types.SideBuy, req.Side)
			},
		},
		{
			name: "polymarket_neg_risk_sell",
			setup: func() {
				tradeVenue = "polymarket"
				tradeYesToken = "111"
				tradeNoToken = "222"
				tradeNegRisk = true
				tradeSide = "sell"
				tradeOutcome = "no"
				tradeAmount = 25
			},
			check: func(t *testing.T, req *types.TradeRequest) {
				assert.Equal(t, types.VenuePolymarket, req.Market.Venue)
				assert.True(t, req.Market.NegRisk)
				assert.Equal(t, types.SideSell, req.Side)
				assert.Equal(t, "NO", req.Outcome)
			},
		},
		{
			name: "kalshi_missing_ticker",
			setup: func() {
				tradeVenue = "kalshi"
				tradeAmount = 50
			},
			wantErr: "--ticker is required",
		},
		{
			name: "polymarket_missing_tokens",
			setup: func() {
				tradeVenue = "polymarket"
				tradeYesToken = "111"
				tradeAmount = 50
			},
			wantErr: "--yes-token and --no-token",
		},
		{
			name: "unknown_venue",
			setup: func() {
				tradeVenue = "nyse"
				tradeAmount = 50
			},
			wantErr: "unknown venue",
		},
		{
			name: "bad_side",
			setup: func() {
				tradeVenue = "kalshi"
				tradeTicker = "T"
				tradeSide = "hold"
				tradeAmount = 50
			},
			wantErr: "side must be buy or sell",
		},
		{
			name: "bad_outcome",
			setup: func() {
				tradeVenue = "kalshi"
				tradeTicker = "T"
				tradeOutcome = "MAYBE"
				tradeAmount = 50
			},
			wantErr: "outcome must be YES or NO",
		},
		{
			name: "zero_amount",
			setup: func() {
				tradeVenue = "kalshi"
				tradeTicker = "T"
			},
			wantErr: "--amount must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetTradeFlags()
			tt.setup()

			req, err := tradeRequestFromFlags()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.check(t, req)
		})
	}
}
