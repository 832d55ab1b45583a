package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Extract, promote, deprecate, and merge project memory items",
	}
	cmd.AddCommand(newMemoryExtractCmd())
	cmd.AddCommand(newMemoryPromoteCmd())
	cmd.AddCommand(newMemoryDeprecateCmd())
	cmd.AddCommand(newMemoryMergeCmd())
	return cmd
}

func newMemoryExtractCmd() *cobra.Command {
	var projectID string
	var apply bool
	cmd := &cobra.Command{
		Use:   "extract <transcript-file>",
		Short: "Run the extraction pipeline over a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := theApp.Orchestrator.MemoryExtract(context.Background(), projectID, transcript, apply)
			if err != nil {
				return err
			}
			mode := "preview"
			if apply {
				mode = "applied"
			}
			out.Success("%s: %d candidate(s) from %d scanned line(s), %d skipped, %d truncated",
				mode, len(result.Items), result.CandidateCount, result.SkippedLines, result.TruncatedLines)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id the transcript belongs to")
	cmd.Flags().BoolVar(&apply, "apply", false, "persist extracted candidates instead of only previewing them")
	cmd.MarkFlagRequired("project")
	return cmd
}

func newMemoryPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <memory-item-id>",
		Short: "Advance a memory item one status step (candidate->active->stable)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := theApp.Orchestrator.MemoryPromote(context.Background(), args[0]); err != nil {
				return err
			}
			out.Success("promoted %s", args[0])
			return nil
		},
	}
}

func newMemoryDeprecateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deprecate <memory-item-id>",
		Short: "Deprecate a memory item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := theApp.Orchestrator.MemoryDeprecate(context.Background(), args[0]); err != nil {
				return err
			}
			out.Success("deprecated %s", args[0])
			return nil
		},
	}
}

func newMemoryMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <keep-id> <duplicate-id>...",
		Short: "Deprecate the given duplicate memory items in favor of one kept item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := theApp.Orchestrator.MemoryMerge(context.Background(), args[0], args[1:]); err != nil {
				return err
			}
			out.Success("merged %d item(s) into %s", len(args[1:]), args[0])
			return nil
		},
	}
}
