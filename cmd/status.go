package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/openpredict/tradegate/internal/proxywallet"
	"github.com/openpredict/tradegate/pkg/config"
	"github.com/openpredict/tradegate/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show proxy-wallet state, balance and allowances",
	RunE:  runStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	owner, err := ownerAddress()
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

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	rec, err := application.ProxyManager().CheckStatus(ctx, owner)
	if err != nil {
		return fmt.Errorf("check proxy status: %w", err)
	}

	fmt.Printf("\n=== Proxy Wallet Status ===\n\n")
	fmt.Printf("Owner:  %s\n", owner)
	fmt.Printf("State:  %s\n", rec.State)
	if rec.ProxyAddress != "" {
		fmt.Printf("Proxy:  %s\n", rec.ProxyAddress)
	}
	if rec.LastError != "" {
		fmt.Printf("Last error: %s\n", rec.LastError)
	}

	if rec.State != proxywallet.StateDeployed {
		fmt.Printf("\nProxy not deployed; run `tradegate deploy-proxy` first.\n")
		return nil
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	walletClient, err := wallet.NewClient(cfg.PolygonRPCURL, logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	spenders := []string{
		string(proxywallet.TargetCTFExchange),
		string(proxywallet.TargetNegRiskExchange),
	}

	balances, err := walletClient.GetBalances(ctx, common.HexToAddress(rec.ProxyAddress), spenders)
	if err != nil {
		return fmt.Errorf("read balances: %w", err)
	}

	fmt.Printf("\nUSDC balance: $%.2f\n\n", balances.USDC)
	fmt.Printf("Allowances:\n")
	for _, spender := range spenders {
		label := "CTF Exchange"
		if spender == string(proxywallet.TargetNegRiskExchange) {
			label = "Neg Risk CTF Exchange"
		}

		allowance := balances.Allowances[spender]
		display := fmt.Sprintf("$%.2f", allowance)
		if allowance > 1e15 {
			display = "unlimited"
		}
		fmt.Printf("  %-22s %s\n", label+":", display)
	}

	return nil
}
