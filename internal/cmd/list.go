package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/store"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities in the collection",
	}
	cmd.AddCommand(newListArtifactsCmd())
	cmd.AddCommand(newListProjectsCmd())
	return cmd
}

func newListArtifactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts",
		Short: "List every artifact in the active collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ref, err := theApp.EnsureCollection(ctx)
			if err != nil {
				return err
			}
			cursor := ""
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"UUID", "Type", "Name", "Origin", "Updated"})
			table.SetAutoWrapText(false)
			any := false
			for {
				items, page, err := theApp.Store.ListArtifactsByCollection(ctx, nil, ref.ID, store.ListOptions{Cursor: cursor, PageSize: 100})
				if err != nil {
					return err
				}
				for _, a := range items {
					any = true
					table.Append([]string{a.UUID, string(a.Type), a.Name, string(a.Origin), a.UpdatedAt.Format("2006-01-02 15:04")})
				}
				if !page.HasMore {
					break
				}
				cursor = page.Cursor
			}
			if !any {
				out.Info("collection has no artifacts yet")
				return nil
			}
			table.Render()
			return nil
		},
	}
}

func newListProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List every registered project",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := theApp.Store.ListProjects(context.Background(), nil)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				out.Info("no projects registered yet")
				return nil
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Path", "Deployments"})
			for _, p := range projects {
				table.Append([]string{p.ID, p.Name, p.Path, strconv.Itoa(p.DeploymentCount)})
			}
			table.Render()
			return nil
		},
	}
}
