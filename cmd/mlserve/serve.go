package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mlserve/internal/history"
	"mlserve/internal/httpapi"
	"mlserve/internal/manager"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the configured models and serve predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address, e.g. :9000")
	cmd.Flags().String("engine", "", "Inference engine: llama|openai")
	cmd.Flags().String("engine-url", "", "Base URL of an OpenAI-compatible engine server")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd, getenv)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	res, closeLocker, err := buildResolver(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	var store *history.Store
	mcfg := manager.ManagerConfig{
		Resolver:        res,
		Adapter:         buildAdapter(cfg, log),
		Sampling:        samplingFromConfig(cfg),
		LoadConcurrency: cfg.LoadConcurrency,
		Logger:          &log,
	}
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		mcfg.History = store
	}
	m := manager.NewWithConfig(mcfg)

	sc := m.SanityCheck(ctx)
	ev := log.Info()
	if sc.Error != "" {
		ev = log.Warn().Str("error", sc.Error)
	}
	ev.Str("adapter", sc.Adapter).Bool("llama_built", sc.LlamaBuilt).Bool("reachable", sc.Reachable).Msg("engine sanity check")

	httpapi.SetLogger(log)
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetInferTimeoutSeconds(cfg.InferTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(service{Manager: m, history: store}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Strs("models", cfg.Models).Msg("mlserve listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// Requests arriving while models load get 404 and /readyz reports 503.
	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		if _, _, err := m.LoadAll(ctx, cfg.Models); err != nil {
			log.Error().Err(err).Msg("model loading")
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err, ok := <-srvErr:
		if ok {
			runErr = err
			log.Error().Err(err).Msg("server error")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown timed out; canceling in-flight generations")
		cancelBase()
		_ = srv.Close()
	}
	cancelBase()
	cancelRun()
	<-loaded
	if err := m.Close(); err != nil {
		log.Warn().Err(err).Msg("closing sessions")
	}
	return runErr
}
