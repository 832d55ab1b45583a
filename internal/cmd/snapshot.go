package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/models"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and restore content-addressed snapshots of an artifact or a deployed project",
	}
	cmd.AddCommand(newSnapshotCreateCmd())
	cmd.AddCommand(newSnapshotRollbackCmd())
	return cmd
}

func snapshotScope(s string) models.SnapshotScope {
	if s == "artifact" {
		return models.SnapshotScopeArtifact
	}
	return models.SnapshotScopeDeployedProject
}

func newSnapshotCreateCmd() *cobra.Command {
	var scope, scopeID, root, by string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Take a manual snapshot of a scope's current content",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := theApp.Orchestrator.Snapshot(context.Background(), snapshotScope(scope), scopeID, root, by)
			if err != nil {
				return err
			}
			out.Success("created snapshot %s (%s, %d files)", snap.ID, snap.Scope, len(snap.Tree))
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "deployed_project", "snapshot scope: artifact or deployed_project")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "artifact uuid or project id being snapshotted")
	cmd.Flags().StringVar(&root, "root", "", "directory to read content from")
	cmd.Flags().StringVar(&by, "by", "cli", "actor recorded on the snapshot")
	cmd.MarkFlagRequired("scope-id")
	cmd.MarkFlagRequired("root")
	return cmd
}

func newSnapshotRollbackCmd() *cobra.Command {
	var scope, scopeID, root, by string
	cmd := &cobra.Command{
		Use:   "rollback <snapshot-id>",
		Short: "Restore a scope to a prior snapshot, recording a compensating snapshot of the state it replaced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compensating, err := theApp.Orchestrator.Rollback(context.Background(), snapshotScope(scope), scopeID, root, args[0], by)
			if err != nil {
				return err
			}
			out.Success("rolled back to %s, compensating snapshot %s", args[0], compensating.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "deployed_project", "snapshot scope: artifact or deployed_project")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "artifact uuid or project id being restored")
	cmd.Flags().StringVar(&root, "root", "", "directory to restore content into")
	cmd.Flags().StringVar(&by, "by", "cli", "actor recorded on the compensating snapshot")
	cmd.MarkFlagRequired("scope-id")
	cmd.MarkFlagRequired("root")
	return cmd
}
