package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/JamesPrial/pokeflow/internal/browser"
	"github.com/JamesPrial/pokeflow/pkg/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newGraphCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Load the listing and print the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			defer logging.Shutdown()

			deps, err := newSessionDeps(cfg, nil)
			if err != nil {
				return err
			}
			manager := newSession(cfg, deps, nil)
			defer manager.Close()

			mountSession(cmd.Context(), manager)
			nodes, edges := manager.Store().Snapshot()
			view := browser.GraphView{Nodes: nodes, Edges: edges}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			printGraph(cmd.OutOrStdout(), view)
			if len(nodes) == 1 {
				return fmt.Errorf("no Pokémon loaded; see the log for the listing error")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the graph as JSON")
	return cmd
}
