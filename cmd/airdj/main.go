// Command airdj runs the automated radio DJ: it picks the next track with
// a two-pass model vote, generates and validates a spoken intro, and plays
// the result in a loop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/localfm/airdj/infrastructure/intro"
	"github.com/localfm/airdj/infrastructure/llm"
	"github.com/localfm/airdj/infrastructure/metrics"
	"github.com/localfm/airdj/infrastructure/referee"
	"github.com/localfm/airdj/infrastructure/selection"
	"github.com/localfm/airdj/internal/config"
	"github.com/localfm/airdj/internal/library"
	"github.com/localfm/airdj/internal/metadata"
	"github.com/localfm/airdj/internal/ports"
	"github.com/localfm/airdj/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		playerCmd   string
		speakerCmd  string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "airdj",
		Short: "Automated radio DJ with model-voted track selection",
		Long: `airdj scans a music library, asks two language-model passes to agree on
the next track, generates and validates a spoken introduction, and plays
the result on repeat. A local Ollama server is the default model backend.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, metricsAddr, playerCmd, speakerCmd, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults apply when empty)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().StringVar(&playerCmd, "player-cmd", "ffplay -nodisp -autoexit -loglevel quiet", "command used to play a track; the file path is appended")
	cmd.Flags().StringVar(&speakerCmd, "speaker-cmd", "say", "command used to speak an intro; the text is appended")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func run(parent context.Context, configPath, metricsAddr, playerCmd, speakerCmd string, verbose bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	collector := metrics.NewPrometheusMetrics()
	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}

	// One limiter and one retry policy shared by every model client, so
	// concurrent passes cannot stampede a local Ollama server.
	shared := []llm.Middleware{
		llm.RetryMiddleware(cfg.Retry.MaxRetries, cfg.Retry.BaseDelay.Std(), cfg.Retry.MaxDelay.Std()),
		llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst),
		llm.MetricsMiddleware(collector),
	}

	passA, err := buildClient(cfg.Models.PassA, shared)
	if err != nil {
		return fmt.Errorf("pass A client: %w", err)
	}
	passB, err := buildClient(cfg.Models.PassB, shared)
	if err != nil {
		return fmt.Errorf("pass B client: %w", err)
	}
	refereeClient := passA
	if cfg.Models.Referee != nil {
		refereeClient, err = buildClient(*cfg.Models.Referee, shared)
		if err != nil {
			return fmt.Errorf("referee client: %w", err)
		}
	}

	ref, err := referee.New(refereeClient, cfg.Referee)
	if err != nil {
		return err
	}
	engine, err := selection.NewEngine(passA, passB, ref, cfg.Selection, collector)
	if err != nil {
		return err
	}
	validator, err := intro.NewValidator(cfg.Validator)
	if err != nil {
		return err
	}
	duel, err := intro.NewDuel(passA, passB, validator, ref, cfg.Duel, collector)
	if err != nil {
		return err
	}

	lib, err := library.New(cfg.Library.Dir, logger)
	if err != nil {
		return err
	}
	if lib.Size() == 0 {
		return fmt.Errorf("no playable tracks under %s", cfg.Library.Dir)
	}
	collector.RecordGauge("library_tracks", float64(lib.Size()), nil)
	if cfg.Library.Watch {
		go func() {
			if err := lib.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("library watcher stopped", zap.Error(err))
			}
		}()
	}

	var facts ports.MetadataSource
	if cfg.Session.UseMetadata {
		facts = metadata.NewSource(nil, logger)
	}

	var history ports.HistorySink = session.NopHistory{}
	if cfg.Session.HistoryPath != "" {
		history = session.NewFileHistory(cfg.Session.HistoryPath)
	}

	sess, err := session.New(
		lib, engine, duel, facts,
		newExecPlayer(playerCmd, logger),
		newExecSpeaker(speakerCmd, logger),
		history, logger,
		session.Config{
			SampleSize:        cfg.Library.SampleSize,
			MaxTracks:         cfg.Session.MaxTracks,
			ExcludeSameArtist: cfg.Library.ExcludeSameArtist,
			UseMetadata:       cfg.Session.UseMetadata,
		},
	)
	if err != nil {
		return err
	}

	first, err := firstTrack(lib)
	if err != nil {
		return err
	}
	logger.Info("session starting",
		zap.String("library", cfg.Library.Dir),
		zap.Int("tracks", lib.Size()),
		zap.String("first", first.Identity),
	)

	if err := sess.Run(ctx, first); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("session finished")
	return nil
}

func buildClient(cfg config.LLMConfig, middleware []llm.Middleware) (*llm.Client, error) {
	return llm.NewClient(cfg.Provider, llm.ClientConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout.Std(),
		Middleware: middleware,
	})
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg = zap.NewDevelopmentConfig()
	}
	return zcfg.Build()
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}
