// Package cmd implements the skillmeat CLI: a thin cobra front end
// over the Orchestrator, grounded on driftmgr's internal/cmd layering
// (one file per command group, a shared root holding global flags).
package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/app"
	"github.com/miethe/skillmeat/internal/cli"
)

var (
	configPath string
	noColor    bool

	theApp *app.App
	out    = cli.NewOutputFormatter()
)

// Execute runs the root command. Called by cmd/skillmeat/main.go.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "skillmeat",
		Short:         "Manage reusable AI-agent configuration artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
				out.DisableColor()
			}
			a, err := app.New(configPath)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			theApp = a
			ctx := context.Background()
			if _, err := theApp.EnsureCollection(ctx); err != nil {
				return fmt.Errorf("ensure collection: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if theApp != nil {
				return theApp.Store.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to skillmeat config file")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(newCollectionCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newArtifactCmd())
	root.AddCommand(newDeployCmd())
	root.AddCommand(newUndeployCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newMemoryCmd())
	root.AddCommand(newContextCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newServeCmd())
	return root
}
