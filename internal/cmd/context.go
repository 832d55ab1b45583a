package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/contextpack"
	"github.com/miethe/skillmeat/internal/models"
)

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Render a budgeted context pack for a project",
	}
	cmd.AddCommand(newContextPackCmd())
	return cmd
}

func newContextPackCmd() *cobra.Command {
	var projectID string
	var types []string
	var minConfidence float64
	var budget int

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Select and render memory items into a token-budgeted pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := models.ContextModuleSelectors{MinConfidence: minConfidence}
			for _, t := range types {
				sel.Types = append(sel.Types, models.MemoryItemType(strings.TrimSpace(t)))
			}
			pack, err := theApp.Orchestrator.ContextPack(context.Background(), projectID, contextpack.Selectors(sel), budget)
			if err != nil {
				return err
			}
			if len(pack.Items) == 0 {
				out.Info("no memory items matched the selectors")
				return nil
			}
			fmt.Println(pack.Rendered)
			out.Info("%d item(s), %d/%d tokens, %d dropped for budget", len(pack.Items), pack.TotalTokens, pack.BudgetTokens, pack.Dropped)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id to pack memory items for")
	cmd.Flags().StringSliceVar(&types, "type", nil, "restrict to these memory item types (repeatable)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "minimum confidence to include")
	cmd.Flags().IntVar(&budget, "budget", 4000, "token budget for the rendered pack")
	cmd.MarkFlagRequired("project")
	return cmd
}
