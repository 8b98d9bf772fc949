package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openpredict/tradegate/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Build, sign and submit one order",
	Long: `Runs the full pre-trade pipeline for a single order: venue and
proxy-wallet checks, balance and allowance verification (with at most
one automatic approval cycle), signing, and submission.

Examples:
  tradegate trade --venue kalshi --ticker FED-25DEC --outcome YES --amount 50 --price 0.40
  tradegate trade --venue polymarket --yes-token 123 --no-token 456 --outcome NO --amount 25
  tradegate trade --venue polymarket --yes-token 123 --no-token 456 --neg-risk --side sell --amount 10 --price 0.65`,
	RunE: runTrade,
}

//nolint:gochecknoglobals // Cobra flags
var (
	tradeVenue    string
	tradeTicker   string
	tradeYesToken string
	tradeNoToken  string
	tradeNegRisk  bool
	tradeOutcome  string
	tradeSide     string
	tradeAmount   float64
	tradePrice    float64
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(tradeCmd)

	tradeCmd.Flags().StringVar(&tradeVenue, "venue", "", "Venue: kalshi or polymarket")
	tradeCmd.Flags().StringVar(&tradeTicker, "ticker", "", "Kalshi market ticker")
	tradeCmd.Flags().StringVar(&tradeYesToken, "yes-token", "", "Polymarket YES token id")
	tradeCmd.Flags().StringVar(&tradeNoToken, "no-token", "", "Polymarket NO token id")
	tradeCmd.Flags().BoolVar(&tradeNegRisk, "neg-risk", false, "Negative-risk instrument")
	tradeCmd.Flags().StringVar(&tradeOutcome, "outcome", "YES", "Outcome: YES or NO")
	tradeCmd.Flags().StringVar(&tradeSide, "side", "buy", "Side: buy or sell")
	tradeCmd.Flags().Float64Var(&tradeAmount, "amount", 0, "USD notional")
	tradeCmd.Flags().Float64Var(&tradePrice, "price", 0, "Unit price in (0,1); 0 submits a market-style order")

	_ = tradeCmd.MarkFlagRequired("venue")
	_ = tradeCmd.MarkFlagRequired("amount")
}

func runTrade(cmd *cobra.Command, args []string) error {
	req, err := tradeRequestFromFlags()
	if err != nil {
		return err
	}

	application, logger, err := buildApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := application.Orchestrator().ExecuteTrade(ctx, req)
	if err != nil {
		return fmt.Errorf("execute trade: %w", err)
	}

	fmt.Printf("\n=== Trade Submitted ===\n")
	fmt.Printf("Venue:    %s\n", result.Venue)
	fmt.Printf("Side:     %s %s\n", result.Side, result.Outcome)
	fmt.Printf("Amount:   $%.2f\n", result.Amount)
	if result.OrderID != "" {
		fmt.Printf("Order ID: %s\n", result.OrderID)
	}
	if result.TxHash != "" {
		fmt.Printf("Tx Hash:  %s\n", result.TxHash)
	}

	return nil
}

func tradeRequestFromFlags() (*types.TradeRequest, error) {
	market := &types.Market{
		NegRisk: tradeNegRisk,
	}

	switch strings.ToLower(tradeVenue) {
	case "kalshi":
		if tradeTicker == "" {
			return nil, fmt.Errorf("--ticker is required for kalshi")
		}
		market.Venue = types.VenueKalshi
		market.Ticker = tradeTicker
	case "polymarket":
		if tradeYesToken == "" || tradeNoToken == "" {
			return nil, fmt.Errorf("--yes-token and --no-token are required for polymarket")
		}
		market.Venue = types.VenuePolymarket
		market.YesTokenID = tradeYesToken
		market.NoTokenID = tradeNoToken
	default:
		return nil, fmt.Errorf("unknown venue %q", tradeVenue)
	}

	side := types.SideBuy
	switch strings.ToLower(tradeSide) {
	case "buy":
	case "sell":
		side = types.SideSell
	default:
		return nil, fmt.Errorf("side must be buy or sell, got %q", tradeSide)
	}

	outcome := strings.ToUpper(tradeOutcome)
	if outcome != "YES" && outcome != "NO" {
		return nil, fmt.Errorf("outcome must be YES or NO, got %q", tradeOutcome)
	}

	if tradeAmount <= 0 {
		return nil, fmt.Errorf("--amount must be positive")
	}

	return &types.TradeRequest{
		Market:  market,
		Outcome: outcome,
		Amount:  tradeAmount,
		Side:    side,
		Price:   tradePrice,
	}, nil
}
