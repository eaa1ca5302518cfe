// Command party-playlist shows who added the song currently playing at a party.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/justestif/party-playlist/internal/attribution"
	"github.com/justestif/party-playlist/internal/auth"
	"github.com/justestif/party-playlist/internal/config"
	"github.com/justestif/party-playlist/internal/logger"
	"github.com/justestif/party-playlist/internal/nowplaying"
	"github.com/justestif/party-playlist/internal/scheduler"
	"github.com/justestif/party-playlist/internal/spotify"
	"github.com/justestif/party-playlist/internal/web"
)

var (
	addr            string
	pollInterval    time.Duration
	rebuildInterval time.Duration
	envFile         string
)

var rootCmd = &cobra.Command{
	Use:           "party-playlist",
	Short:         "Serve the contributor of the currently playing party playlist track.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr = addr
		}
		if cmd.Flags().Changed("poll-interval") {
			cfg.PollInterval = pollInterval
		}
		if cmd.Flags().Changed("rebuild-interval") {
			cfg.RebuildInterval = rebuildInterval
		}
		if cfg.PollInterval <= 0 || cfg.RebuildInterval <= 0 {
			return fmt.Errorf("intervals must be positive")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "HTTP listen address")
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", config.DefaultPollInterval, "now-playing poll interval")
	rootCmd.Flags().DurationVar(&rebuildInterval, "rebuild-interval", config.DefaultRebuildInterval, "attribution rebuild interval")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	creds, err := auth.New(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken,
		auth.WithLogger(log.Named("auth")))
	if err != nil {
		return fmt.Errorf("creating credential manager: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(spotify.DefaultRequestRate), spotify.DefaultRequestRate)
	client := spotify.NewWithTokenSource(creds, limiter)
	cache := attribution.New(client, creds, cfg.PlaylistID,
		attribution.WithLogger(log.Named("attribution")))
	store := nowplaying.NewStore()
	resolver := nowplaying.NewResolver(client, cache, creds, store, log.Named("nowplaying"))

	sched := scheduler.New(log.Named("scheduler"),
		scheduler.Task{
			Name:     "poll",
			Interval: cfg.PollInterval,
			Run:      func(ctx context.Context) { resolver.Poll(ctx) },
		},
		scheduler.Task{
			Name:     "rebuild",
			Interval: cfg.RebuildInterval,
			Run: func(ctx context.Context) {
				if _, err := cache.Rebuild(ctx); err != nil {
					log.Warn("attribution rebuild failed", zap.Error(err))
				}
			},
		},
	)

	server, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Addr,
		Snapshots:    store,
		Attributions: cache,
		Logger:       log.Named("web"),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return serve(ctx, log, cache, sched, server)
}

type rebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

type backgroundTasks interface {
	Start(ctx context.Context) error
	Stop()
}

type httpServer interface {
	Run(ctx context.Context) error
}

// serve rebuilds the attribution cache once, then starts the background tasks,
// then blocks serving HTTP until ctx is cancelled. A failed initial rebuild
// leaves the cache empty for the scheduled rebuilds to fill.
func serve(ctx context.Context, log *zap.Logger, cache rebuilder, tasks backgroundTasks, server httpServer) error {
	if n, err := cache.Rebuild(ctx); err != nil {
		log.Warn("initial attribution rebuild failed", zap.Int("added", n), zap.Error(err))
	}

	if err := tasks.Start(ctx); err != nil {
		return err
	}
	defer tasks.Stop()

	return server.Run(ctx)
}
