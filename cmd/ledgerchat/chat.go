package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/ledgerchat/internal/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat [channel-id]",
	Short: "Chat with the engine from the terminal",
	Long: `Opens a console conversation on one channel. Type a flow name (offer,
ledger, ...) to start it, /cancel to abandon a flow, /reset to clear the
session and /quit to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID := "console"
		if len(args) == 1 {
			channelID = args[0]
		}
		headless, _ := cmd.Flags().GetBool("headless")
		raw, _ := cmd.Flags().GetBool("raw")
		asJSON, _ := cmd.Flags().GetBool("json")

		app, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.RunChat(ctx, app, cli.ChatOptions{
			ChannelID: channelID,
			Headless:  headless,
			Raw:       raw,
			JSON:      asJSON,
			Input:     os.Stdin,
			Output:    cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("headless", false, "Plain line IO for scripts and pipes")
	chatCmd.Flags().Bool("raw", false, "Print markdown without styling")
	chatCmd.Flags().Bool("json", false, "Emit results as JSON lines")
}
