package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/classroom/internal/adapters/channel/websocket"
	"github.com/bnema/classroom/internal/adapters/httpapi"
	surfacememory "github.com/bnema/classroom/internal/adapters/surface/memory"
	"github.com/bnema/classroom/internal/application"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve admission, session snapshots and the channel relay over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = app.config.GetString(keyServerListen)
			}

			server, err := newHTTPServer(app, listen)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			app.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("stop server: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from server.listen)")

	return cmd
}

// newHTTPServer builds a room manager whose participants bind through the
// server's own websocket relay.
func newHTTPServer(app *app, listen string) (*httpapi.Server, error) {
	transport, err := websocket.NewTransport("http://"+listen, app.logger)
	if err != nil {
		return nil, fmt.Errorf("wire channel transport: %w", err)
	}

	rooms := application.NewRoomManager(transport, surfacememory.NewFactory(app.viewport), app.scenes, app.clock, app.logger)
	return httpapi.NewServer(httpapi.Options{
		Address: listen,
		Rooms:   rooms,
		Relay:   websocket.NewRelay(rooms, app.logger),
		Scenes:  app.scenes,
		Logger:  app.logger,
	}), nil
}
