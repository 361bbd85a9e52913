package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/fanpulse/fanpulse/internal/interfaces/http"
)

// newServeCmd builds the API server command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only scoring API",
		Long:  "Serve latest scores, score history, and breakout predictions over HTTP",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	health := httpapi.NewHealthHandler(svc.manager, svc.breaker)
	server := httpapi.NewServer(svc.config.Server, svc.scoring, health)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), svc.config.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
