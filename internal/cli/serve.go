package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moscooltech/suggest-ila2/internal/classify"
	"github.com/moscooltech/suggest-ila2/internal/config"
	"github.com/moscooltech/suggest-ila2/internal/dedup"
	"github.com/moscooltech/suggest-ila2/internal/logger"
	"github.com/moscooltech/suggest-ila2/internal/metrics"
	"github.com/moscooltech/suggest-ila2/internal/pipeline"
	"github.com/moscooltech/suggest-ila2/internal/providers"
	"github.com/moscooltech/suggest-ila2/internal/server"
	"github.com/moscooltech/suggest-ila2/internal/store"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var runMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the suggestion platform API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), runMigrations)
		},
	}
	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply database schema before serving")
	return cmd
}

func runServe(ctx context.Context, runMigrations bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.App.LogLevel)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(cfg.Database.URL, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if runMigrations {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		log.Info("database schema applied")
	}

	groq := providers.NewGroq(cfg.AI.Groq, cfg.AI.Timeout)
	openRouter := providers.NewOpenRouter(cfg.AI.OpenRouter, cfg.AI.Timeout)

	var embedder providers.Embedder
	if cfg.AI.Gemini.APIKey != "" {
		gemini, err := providers.NewGeminiEmbedder(ctx, cfg.AI.Gemini)
		if err != nil {
			log.Warn("embedding provider unavailable", "error", err.Error())
		} else {
			embedder = gemini
		}
	} else {
		log.Warn("no Gemini API key; semantic duplicate detection disabled")
	}

	recorder := metrics.NewPostgresRecorder(db.DB())
	gateway := providers.NewGateway([]providers.Provider{groq, openRouter}, embedder, recorder, nil)
	probe := providers.NewProbe([]providers.ProbeTarget{groq, openRouter}, embedder != nil)

	classifier := classify.New(gateway)
	resolver := dedup.NewResolver(dedup.NewJudge(gateway), gateway)
	pipe := pipeline.New(resolver, classifier, gateway)

	srv := server.New(db, pipe, probe, recorder, cfg.Server, cfg.AI.CandidateSize)

	log.Info("starting suggestd",
		"groq_configured", groq.Configured(),
		"openrouter_configured", openRouter.Configured(),
		"embeddings_enabled", embedder != nil,
	)
	return srv.Start(ctx, cfg.AI.ProbeInterval)
}
