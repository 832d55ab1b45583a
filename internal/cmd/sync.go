package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/cli"
	"github.com/miethe/skillmeat/internal/events"
	"github.com/miethe/skillmeat/internal/watch"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Preview and reconcile drift between an artifact's source, collection, and project copies",
	}
	cmd.AddCommand(newSyncPreviewCmd())
	cmd.AddCommand(newSyncPullCmd())
	cmd.AddCommand(newSyncPushCmd())
	cmd.AddCommand(newSyncWatchCmd())
	return cmd
}

func newSyncWatchCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a project's .claude tree and report drift as it happens, instead of polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			project, err := theApp.Store.GetProject(ctx, nil, projectID)
			if err != nil {
				return err
			}
			claudeRoot := filepath.Join(project.Path, ".claude")
			w, err := watch.New(theApp.Bus, projectID, claudeRoot)
			if err != nil {
				return err
			}
			defer w.Close()

			progress := cli.NewMultiProgress()
			status := progress.AddSpinner("watching " + claudeRoot + " (0 drift event(s))")
			status.Start()
			driftCount := 0

			sub := theApp.Bus.SubscribeToType(events.DeploymentDrifted, func(ev events.Event) {
				driftCount++
				status.SetMessage(fmt.Sprintf("watching %s (%d drift event(s))", claudeRoot, driftCount))
				out.Warning("drift at %v (project %v)", ev.Data["path"], ev.Data["project_id"])
			})
			defer theApp.Bus.Unsubscribe(sub)

			out.Info("watching %s, press Ctrl-C to stop", claudeRoot)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			progress.StopAll()
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id to watch")
	cmd.MarkFlagRequired("project")
	return cmd
}

func newSyncPreviewCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "preview <artifact-uuid>",
		Short: "Show the merge plan for an artifact without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ref, err := theApp.EnsureCollection(ctx)
			if err != nil {
				return err
			}
			artifact, err := theApp.Store.GetArtifact(ctx, nil, args[0])
			if err != nil {
				return err
			}
			project, err := theApp.Store.GetProject(ctx, nil, projectID)
			if err != nil {
				return err
			}
			plan, err := theApp.Orchestrator.SyncPreview(ctx, ref.Root, project.Path, artifact)
			if err != nil {
				return err
			}
			if len(plan.Paths) == 0 {
				out.Info("no files to compare")
				return nil
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"", "Path", "State", "Conflict", "Resolution"})
			for _, pp := range plan.Paths {
				table.Append([]string{out.StatusIcon(string(pp.State)), pp.Path, string(pp.State), string(pp.Conflict), string(pp.Resolution)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id to compare against")
	cmd.MarkFlagRequired("project")
	return cmd
}

func newSyncPullCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "pull <artifact-uuid>",
		Short: "Apply the merge plan's source/collection-favoring paths into the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ref, err := theApp.EnsureCollection(ctx)
			if err != nil {
				return err
			}
			artifact, err := theApp.Store.GetArtifact(ctx, nil, args[0])
			if err != nil {
				return err
			}
			project, err := theApp.Store.GetProject(ctx, nil, projectID)
			if err != nil {
				return err
			}
			plan, err := theApp.Orchestrator.SyncPreview(ctx, ref.Root, project.Path, artifact)
			if err != nil {
				return err
			}
			source, collection, projectTree, err := theApp.Orchestrator.Trees(ctx, ref.Root, project.Path, artifact)
			if err != nil {
				return err
			}
			outcome, err := theApp.Orchestrator.SyncPull(ctx, project.Path, artifact, projectID, plan, source, collection, projectTree)
			if err != nil {
				return err
			}
			if len(outcome.Failed) > 0 {
				out.Warning("pulled %d path(s), %d failed", len(outcome.Applied), len(outcome.Failed))
				return nil
			}
			out.Success("pulled %d path(s), %d conflict(s) remain unresolved", len(outcome.Applied), len(outcome.Conflicts))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id to sync into")
	cmd.MarkFlagRequired("project")
	return cmd
}

func newSyncPushCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "push <artifact-uuid>",
		Short: "Write the project's drifted copy of an artifact back into the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ref, err := theApp.EnsureCollection(ctx)
			if err != nil {
				return err
			}
			artifact, err := theApp.Store.GetArtifact(ctx, nil, args[0])
			if err != nil {
				return err
			}
			project, err := theApp.Store.GetProject(ctx, nil, projectID)
			if err != nil {
				return err
			}
			plan, err := theApp.Orchestrator.SyncPreview(ctx, ref.Root, project.Path, artifact)
			if err != nil {
				return err
			}
			_, _, projectTree, err := theApp.Orchestrator.Trees(ctx, ref.Root, project.Path, artifact)
			if err != nil {
				return err
			}
			applied, failed, err := theApp.Orchestrator.SyncPush(ctx, ref.Root, artifact, plan, projectTree)
			if err != nil {
				return err
			}
			if len(failed) > 0 {
				out.Warning("pushed %d path(s), %d failed", len(applied), len(failed))
				return nil
			}
			out.Success("pushed %d path(s) into the collection", len(applied))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id to push from")
	cmd.MarkFlagRequired("project")
	return cmd
}
