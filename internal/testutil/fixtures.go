package testutil

import (
	"github.com/openpredict/tradegate/pkg/types"
)

// CreateTestMarket creates a Polymarket test market with YES/NO token
// ids derived from the given base id.
func CreateTestMarket(id string, negRisk bool) *types.Market {
	return &types.Market{
		Venue:      types.VenuePolymarket,
		Question:   "Test market " + id,
		YesTokenID: id + "-yes",
		NoTokenID:  id + "-no",
		NegRisk:    negRisk,
	}
}

// CreateTestKalshiMarket creates a Kalshi test market.
func CreateTestKalshiMarket(ticker string) *types.Market {
	return &types.Market{
		Venue:    types.VenueKalshi,
		Question: "Test market " + ticker,
		Ticker:   ticker,
	}
}

// CreateTestTradeRequest creates a buy request against the market.
func CreateTestTradeRequest(market *types.Market, amount, price float64) *types.TradeRequest {
	return &types.TradeRequest{
		Market:  market,
		Outcome: "YES",
		Amount:  amount,
		Side:    types.SideBuy,
		Price:   price,
	}
}
