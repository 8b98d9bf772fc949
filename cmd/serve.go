package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signing and coordination service",
	Long: `Starts the HTTP service, which exposes:
- POST /sign   attribution signing for remote processes
- GET  /health liveness probe
- GET  /ready  readiness probe
- GET  /metrics Prometheus metrics

Processes running with SIGNING_MODE=remote delegate their attribution
headers to this endpoint instead of holding the HMAC secret.`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	application, logger, err := buildApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
