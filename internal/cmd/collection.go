package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Inspect the local artifact collection",
	}
	cmd.AddCommand(newCollectionShowCmd())
	return cmd
}

func newCollectionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active collection's id and root directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := theApp.EnsureCollection(context.Background())
			if err != nil {
				return err
			}
			out.KeyValueList(map[string]string{
				"id":   ref.ID,
				"root": ref.Root,
			})
			return nil
		},
	}
}
