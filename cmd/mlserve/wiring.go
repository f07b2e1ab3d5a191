package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mlserve/internal/config"
	"mlserve/internal/history"
	"mlserve/internal/manager"
	"mlserve/internal/registry"
	"mlserve/internal/resolver"
	"mlserve/pkg/types"
)

// resolveConfig layers the config file, then the environment, then flags the
// user set explicitly, and fills in defaults.
func resolveConfig(cmd *cobra.Command, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if path := flagString(cmd, "config"); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	if v, ok := changed(cmd, "models"); ok {
		cfg.Models = config.SplitNames(v)
	}
	if v, ok := changed(cmd, "cache-dir"); ok {
		cfg.CacheDir = v
	}
	if v, ok := changed(cmd, "tracking-uri"); ok {
		cfg.TrackingURI = v
	}
	if v, ok := changed(cmd, "registry-dir"); ok {
		cfg.RegistryDir = v
	}
	if v, ok := changed(cmd, "log-level"); ok {
		cfg.LogLevel = v
	}
	if v, ok := changed(cmd, "addr"); ok {
		cfg.Addr = v
	}
	if v, ok := changed(cmd, "engine"); ok {
		cfg.Engine = v
	}
	if v, ok := changed(cmd, "engine-url"); ok {
		cfg.EngineURL = v
	}
	return cfg.WithDefaults(), nil
}

func flagString(cmd *cobra.Command, name string) string {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func changed(cmd *cobra.Command, name string) (string, bool) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return "", false
	}
	return f.Value.String(), true
}

// newLogger builds the process logger. Format "console" is human readable,
// anything else writes JSON lines.
func newLogger(w io.Writer, format, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// buildResolver picks the registry backend and the download locker.
// The returned cleanup releases the locker connection.
func buildResolver(ctx context.Context, cfg config.Config, log zerolog.Logger) (*resolver.Resolver, func(), error) {
	var client registry.Client
	if cfg.RegistryDir != "" {
		d, err := registry.NewDirRegistry(cfg.RegistryDir)
		if err != nil {
			return nil, nil, err
		}
		client = d
	} else {
		client = registry.NewMLflowClient(cfg.TrackingURI, time.Duration(cfg.RegistryTimeoutSeconds)*time.Second)
	}

	var locker resolver.Locker = resolver.NoopLocker{}
	cleanup := func() {}
	if cfg.RedisURL != "" {
		rl, err := resolver.NewRedisLocker(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("download lock: %w", err)
		}
		locker = rl
		cleanup = func() { _ = rl.Close() }
	}
	res := resolver.New(client, resolver.Options{
		CacheDir: cfg.CacheDir,
		Prefix:   cfg.RegistryPrefix,
		Locker:   locker,
		LockTTL:  time.Duration(cfg.LockTTLSeconds) * time.Second,
		Logger:   &log,
	})
	return res, cleanup, nil
}

func buildAdapter(cfg config.Config, log zerolog.Logger) manager.InferenceAdapter {
	if cfg.Engine == "openai" {
		timeout := time.Duration(cfg.EngineTimeoutSeconds) * time.Second
		return manager.NewOpenAIAdapter(cfg.EngineURL, cfg.EngineAPIKey, timeout, 5*time.Second, log)
	}
	return manager.NewLlamaAdapter(cfg.LlamaCtx, cfg.LlamaThreads)
}

func samplingFromConfig(cfg config.Config) manager.SamplingConfig {
	return manager.SamplingConfig{
		MaxTokens:     cfg.MaxTokens,
		Temperature:   float32(cfg.Temperature),
		TopP:          float32(cfg.TopP),
		TopK:          cfg.TopK,
		Stop:          append([]string(nil), cfg.Stop...),
		Seed:          cfg.Seed,
		RepeatPenalty: float32(cfg.RepeatPenalty),
	}
}

// service adds the persisted load history to the manager so GET /loads can
// serve it.
type service struct {
	*manager.Manager
	history *history.Store
}

func (s service) RecentLoads(ctx context.Context, limit int) ([]types.LoadRecord, error) {
	if s.history == nil {
		// Without a database only the current run is known.
		report, ok := s.Manager.Report()
		if !ok {
			return nil, nil
		}
		recs := report.Records()
		if limit > 0 && len(recs) > limit {
			recs = recs[:limit]
		}
		return recs, nil
	}
	return s.history.Recent(ctx, limit)
}

func getenv(key string) string { return os.Getenv(key) }
