package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"sbt-minter/internal/api"
	"sbt-minter/internal/config"
)

func newServeCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP mint API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), state.cfg)
		},
	}

	cmd.Flags().String("listen-addr", "", "HTTP listen address")
	cmd.Flags().StringSlice("allowed-origins", nil, "CORS allowed origins")
	for flag, key := range map[string]string{
		"listen-addr":     config.KeyListenAddr,
		"allowed-origins": config.KeyAllowedOrigins,
	} {
		if err := state.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Submissions run on this context so shutdown cancels them.
	srv := api.NewServer(api.Options{
		Minter:         a.minter,
		Logger:         a.logger,
		AllowedOrigins: cfg.AllowedOrigins,
		BaseContext:    ctx,
	})
	httpServer := srv.NewHTTPServer(cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Starting HTTP server on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received, stopping HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Give a cancelled in-flight submission a moment to settle its status.
	deadline := time.Now().Add(5 * time.Second)
	for a.minter.Busy() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	a.logger.Info("Shutdown complete")
	return nil
}
