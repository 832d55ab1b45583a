package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/cli"
)

func newArtifactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Inspect and remove artifacts in the active collection",
	}
	cmd.AddCommand(newArtifactDeleteCmd())
	return cmd
}

func newArtifactDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <artifact-uuid>",
		Short: "Remove an artifact from the collection (refuses if it's still deployed anywhere)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			artifact, err := theApp.Store.GetArtifact(ctx, nil, args[0])
			if err != nil {
				return err
			}
			if !yes {
				prompt := cli.NewPrompt()
				if !prompt.ConfirmArtifactDeletion(string(artifact.Type), artifact.Name, artifact.UUID) {
					out.Info("aborted")
					return nil
				}
			}
			if err := theApp.Orchestrator.DeleteArtifact(ctx, artifact.UUID); err != nil {
				return err
			}
			out.Success("deleted %s/%s", artifact.Type, artifact.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
