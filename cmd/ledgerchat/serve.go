package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/ledgerchat/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Starts the engine behind an HTTP API: POST /webhook takes chat messages,
GET /sessions/{channel}/events streams session changes and GET /metrics
exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.ListenAddr
		if port, _ := cmd.Flags().GetString("addr"); port != "" {
			addr = port
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		if err := cli.ListenAndServe(ctx, app, addr); err != nil {
			return err
		}
		if sig := ctx.Signal(); sig != nil {
			app.Logger.Info("stopped by signal", "signal", sig.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides listen_addr)")
}
