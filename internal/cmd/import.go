package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/cli"
	"github.com/miethe/skillmeat/internal/concurrency"
	"github.com/miethe/skillmeat/internal/discovery"
)

// importWorkers bounds how many artifacts are imported concurrently;
// each import runs in its own store transaction so they don't
// serialize against each other beyond the store's own locking.
const importWorkers = 4

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <directory>",
		Short: "Scan a .claude-shaped directory and import every artifact it finds into the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ref, err := theApp.EnsureCollection(ctx)
			if err != nil {
				return err
			}

			spinner := cli.NewSpinner(fmt.Sprintf("scanning %s", args[0]))
			spinner.Start()
			detected, err := discovery.Scan(theApp.FS, args[0])
			if err != nil {
				spinner.Error(err.Error())
				return fmt.Errorf("scan %s: %w", args[0], err)
			}
			spinner.Success(fmt.Sprintf("found %d artifact(s)", len(detected)))
			if len(detected) == 0 {
				out.Warning("no artifacts found under %s", args[0])
				return nil
			}

			bar := progressbar.Default(int64(len(detected)), "importing")
			pool := concurrency.NewWorkerPool(importWorkers)
			results, _ := pool.SubmitBatch(len(detected), func(i int) error {
				defer bar.Add(1)
				_, err := theApp.Orchestrator.ImportArtifact(ctx, ref.ID, detected[i])
				return err
			})
			_ = pool.Shutdown(5 * time.Second)

			imported := 0
			for _, r := range results {
				if r.Err != nil {
					d := detected[r.Index]
					out.Warning("%s/%s: %v", d.Type, d.Name, r.Err)
					continue
				}
				imported++
			}
			out.Success("imported %d/%d artifacts", imported, len(detected))
			return nil
		},
	}
}
