package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newUndeployCmd() *cobra.Command {
	var projectID, profileID string

	cmd := &cobra.Command{
		Use:   "undeploy <artifact-uuid>",
		Short: "Remove a deployed artifact from a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := theApp.Orchestrator.Undeploy(ctx, args[0], projectID, profileID); err != nil {
				return err
			}
			out.Success("undeployed %s from project %s", args[0], projectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "target project id")
	cmd.Flags().StringVar(&profileID, "profile", "claude-code", "deployment profile id")
	cmd.MarkFlagRequired("project")
	return cmd
}
