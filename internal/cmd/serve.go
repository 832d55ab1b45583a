package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/miethe/skillmeat/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API over the active collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := api.NewServer(theApp, theApp.Config.Server.CORSOrigins)
			addr := fmt.Sprintf("%s:%d", theApp.Config.Server.Host, theApp.Config.Server.Port)
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      srv.Handler(),
				ReadTimeout:  theApp.Config.Server.ReadTimeout,
				WriteTimeout: theApp.Config.Server.WriteTimeout,
			}

			theApp.Shutdown.RegisterShutdown("http", 0, func(ctx context.Context) error {
				return httpServer.Shutdown(ctx)
			})
			theApp.Shutdown.Start()

			out.Info("listening on %s", addr)
			errCh := make(chan error, 1)
			go func() { errCh <- httpServer.ListenAndServe() }()

			if err := <-errCh; err != nil && err != http.ErrServerClosed {
				return err
			}
			theApp.Shutdown.Wait()
			return nil
		},
	}
}
