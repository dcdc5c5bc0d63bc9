package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/ledgerchat"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ledgerchat",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ledgerchat version %s\n", strings.TrimSpace(ledgerchat.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
