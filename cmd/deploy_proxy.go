package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openpredict/tradegate/internal/proxywallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var deployProxyCmd = &cobra.Command{
	Use:   "deploy-proxy",
	Short: "Deploy the proxy wallet through the gasless relay",
	Long: `Submits a deployment intent for your proxy wallet to the relay and
polls until it is mined. The relay sponsors gas; no MATIC is needed.

Deployment is idempotent from the caller's view: if the wallet already
exists the command reports its address and exits.`,
	RunE: runDeployProxy,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(deployProxyCmd)
}

// ownerAddress derives the EOA address from the configured key without
// keeping the key around.
func ownerAddress() (string, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		return "", fmt.Errorf("POLYMARKET_PRIVATE_KEY not set")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}

	return crypto.PubkeyToAddress(privateKey.PublicKey).Hex(), nil
}

func runDeployProxy(cmd *cobra.Command, args []string) error {
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

	manager := application.ProxyManager()

	rec, err := manager.CheckStatus(ctx, owner)
	if err != nil {
		return fmt.Errorf("check proxy status: %w", err)
	}

	if rec.State == proxywallet.StateDeployed {
		fmt.Printf("Proxy wallet already deployed at %s\n", rec.ProxyAddress)
		return nil
	}

	fmt.Printf("Deploying proxy wallet for %s...\n", owner)

	rec, err = manager.Deploy(ctx, owner)
	if err != nil {
		if errors.Is(err, proxywallet.ErrOperationInFlight) {
			return fmt.Errorf("another lifecycle operation is already running for %s", owner)
		}
		return fmt.Errorf("deploy proxy: %w", err)
	}

	if rec.State == proxywallet.StateFailed {
		return fmt.Errorf("relay reported deployment failure: %s", rec.LastError)
	}

	fmt.Printf("Proxy wallet deployed at %s\n", rec.ProxyAddress)
	fmt.Printf("Set POLYMARKET_PROXY_ADDRESS=%s in your .env\n", rec.ProxyAddress)

	return nil
}
