package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/metrics"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/server"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket analysis server",
		RunE:  runServe,
	}
	flgAddr string
)

func init() {
	serveCmd.Flags().StringVar(&flgAddr, "addr", "", "listen address, overrides server.addr")
}

func runServe(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	if flgAddr != "" {
		cfg.Server.Addr = flgAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m = metrics.New()
	st, err := newStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Errorw("Failed to initialize store", "backend", cfg.Store.Backend, "error", err)
		return err
	}
	defer st.Close(context.Background())

	var registry = server.NewRegistry(func(id string) *analysis.Controller {
		return newController(cfg, logger.With("session", id), m, st)
	}, cfg.Server.MaxSessions, logger, m)
	var srv = server.New(cfg.Server, registry, st, logger, m)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Infow("shutting down", "sessions", registry.Len())
		return nil
	})
	return g.Wait()
}
