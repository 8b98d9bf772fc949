package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openpredict/tradegate/internal/proxywallet"
	"github.com/openpredict/tradegate/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Grant USDC allowance to an exchange contract",
	Long: `Submits an unlimited USDC approval from your proxy wallet to the
exchange contract through the gasless relay.

Standard and negative-risk instruments settle through different
exchange contracts; approve the one matching the markets you trade
(or both).`,
	RunE: runApprove,
}

//nolint:gochecknoglobals // Cobra flags
var approveNegRisk bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(approveCmd)
	approveCmd.Flags().BoolVar(&approveNegRisk, "neg-risk", false, "Approve the negative-risk exchange instead of the standard one")
}

func runApprove(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	category := types.RiskStandard
	if approveNegRisk {
		category = types.RiskNegativeRisk
	}
	target := proxywallet.TargetForRiskCategory(category)

	fmt.Printf("Approving %s to spend USDC from the proxy wallet of %s...\n", string(target), owner)

	err = application.ProxyManager().Approve(ctx, owner, target)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}

	fmt.Printf("Approval confirmed\n")
	return nil
}
