package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/ledgerchat/internal/presentation/graph"
	"github.com/aretw0/ledgerchat/pkg/flow"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List the registered flows",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			configs := make([]flow.Config, 0)
			for _, t := range registry.Types() {
				cfg, _ := registry.FlowConfig(t)
				configs = append(configs, cfg)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(configs)
		}

		for _, t := range registry.Types() {
			cfg, _ := registry.FlowConfig(t)
			mode := "local"
			switch {
			case cfg.Submit && cfg.Query:
				mode = "query"
			case cfg.Submit:
				mode = "submit"
			}
			fmt.Fprintf(out, "%-16s %-7s %s\n", t, mode, strings.Join(cfg.StepNames(), " -> "))
		}
		return nil
	},
}

var flowsGraphCmd = &cobra.Command{
	Use:   "graph <flow>",
	Short: "Print a Mermaid chart of a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		cfg, err := registry.FlowConfig(flow.Type(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(cfg, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsGraphCmd)
	flowsCmd.Flags().Bool("json", false, "Print flow definitions as JSON")
}

// loadRegistry avoids connecting to the session backend.
func loadRegistry(cmd *cobra.Command) (*flow.Registry, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Flow.File == "" {
		return flow.Default(), nil
	}
	return flow.LoadFile(flow.Default(), cfg.Flow.File)
}
