package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/app"
	"github.com/openpredict/tradegate/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "tradegate",
	Short: "Authenticated order signing and relayed transaction coordination",
	Long: `tradegate signs and submits prediction-market orders across two venues:
Kalshi (RSA-PSS request signing) and Polymarket (EIP-712 order signing
with a relay-managed proxy wallet).

It manages the proxy-wallet lifecycle through the gasless relay, keeps
USDC allowances topped up, and can serve attribution signatures to
remote processes that hold no secret material.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// buildApp loads configuration from the environment and wires the
// application container shared by every command.
func buildApp() (*app.App, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create app: %w", err)
	}

	return application, logger, nil
}
