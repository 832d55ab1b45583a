package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/cli"
	"github.com/miethe/skillmeat/internal/fsadapter"
)

func newDeployCmd() *cobra.Command {
	var projectID, profileID string
	var overwrite bool

	single := &cobra.Command{
		Use:   "deploy <artifact-uuid>",
		Short: "Deploy an artifact into a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ref, err := theApp.EnsureCollection(ctx)
			if err != nil {
				return err
			}
			d, err := theApp.Orchestrator.Deploy(ctx, ref.Root, args[0], projectID, profileID, overwrite)
			if err != nil {
				return err
			}
			out.Success("deployed %s to project %s at %s", args[0], projectID, d.DeployedAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	single.Flags().StringVar(&projectID, "project", "", "target project id")
	single.Flags().StringVar(&profileID, "profile", "claude-code", "deployment profile id")
	single.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite local modifications at the target")
	single.MarkFlagRequired("project")

	single.AddCommand(newDeploySetCmd())
	return single
}

func newDeploySetCmd() *cobra.Command {
	var projectID, profileID string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "set <deployment-set-id>",
		Short: "Deploy every member of a deployment set together, reporting one partial outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ref, err := theApp.EnsureCollection(ctx)
			if err != nil {
				return err
			}
			project, err := theApp.Store.GetProject(ctx, nil, projectID)
			if err != nil {
				return err
			}
			journalPath := fsadapter.JournalPathFor(project.Path, args[0])

			spinner := cli.NewSpinner("deploying set " + args[0])
			spinner.Start()
			applied, outcome, err := theApp.Orchestrator.DeploySet(ctx, ref.Root, journalPath, args[0], projectID, profileID, overwrite)
			if err != nil {
				spinner.Error(err.Error())
				return err
			}
			if outcome != nil && len(outcome.Failed) > 0 {
				spinner.Error("some members failed")
				out.Warning("deployed %d member(s), %d failed", len(applied), len(outcome.Failed))
				for _, f := range outcome.Failed {
					out.Warning("  %s: %v", f.ID, f.Err)
				}
				return nil
			}
			spinner.Success("deployed all " + args[0])
			out.Success("deployed all %d member(s) of set %s", len(applied), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "target project id")
	cmd.Flags().StringVar(&profileID, "profile", "claude-code", "deployment profile id")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite local modifications at the target")
	cmd.MarkFlagRequired("project")
	return cmd
}
