package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/pokeflow/internal/panel"
	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Load one Pokémon and print its detail panel",
		Args:  cobra.ExactArgs(1),
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

			view, err := showDetail(cmd, manager.Panel(), args[0])
			if err != nil {
				return err
			}
			printPanel(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

// showDetail selects name in the panel and waits for the outcome
func showDetail(cmd *cobra.Command, controller *panel.Controller, name string) (panel.View, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return panel.View{}, fmt.Errorf("name cannot be empty")
	}

	node := pokemon.Node{
		ID:   "cli",
		Type: pokemon.NodeTypeDefault,
		Kind: pokemon.NodeKindEntity,
		Data: pokemon.NodeData{Label: name},
	}
	controller.Select(cmd.Context(), node)
	controller.Wait()

	view := controller.View()
	if view.State != panel.StateLoaded {
		return view, fmt.Errorf("failed to load details for %s", strings.ToLower(name))
	}
	return view, nil
}
