package cmd

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/hackhero/internal/agent"
	"github.com/nextlevelbuilder/hackhero/internal/artifacts"
	"github.com/nextlevelbuilder/hackhero/internal/config"
	"github.com/nextlevelbuilder/hackhero/internal/export"
	"github.com/nextlevelbuilder/hackhero/internal/ingest"
	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/rag"
	"github.com/nextlevelbuilder/hackhero/internal/server"
	"github.com/nextlevelbuilder/hackhero/internal/store"
	"github.com/nextlevelbuilder/hackhero/internal/store/pg"
	"github.com/nextlevelbuilder/hackhero/internal/store/sqlite"
	"github.com/nextlevelbuilder/hackhero/internal/telemetry"
	"github.com/nextlevelbuilder/hackhero/internal/tools"
)

// Exit codes: 0 clean shutdown, 1 runtime failure, 2 bad configuration,
// 3 migration failure.
const (
	exitRuntime   = 1
	exitConfig    = 2
	exitMigration = 3
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default command)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
	cmd.Flags().StringVar(&migrationsDir, "migrations-dir", "", "path to migrations directory (default: ./migrations)")
	return cmd
}

func runServe() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	log := slog.Default()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		cancel()
	}()

	telemetryShutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without traces", "error", err)
	} else {
		defer telemetryShutdown(context.Background())
	}

	// Apply migrations before opening the store so the schema is always
	// current when the first query runs.
	if err := applyMigrations(cfg); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(exitMigration)
	}

	var db *sql.DB
	var stores *store.Stores
	if cfg.UsePostgres() {
		db, err = pg.OpenDB(cfg.Database.PostgresDSN)
		if err != nil {
			slog.Error("failed to open postgres", "error", err)
			os.Exit(exitRuntime)
		}
		stores = pg.NewStores(db)
	} else {
		db, err = sqlite.Open(cfg.DatabasePath())
		if err != nil {
			slog.Error("failed to open sqlite", "error", err, "path", cfg.DatabasePath())
			os.Exit(exitRuntime)
		}
		stores = sqlite.NewStores(db)
	}
	defer db.Close()

	provider := providers.NewManager(stores.Settings,
		cfg.Provider.Kind, cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.DefaultModel)
	provider.Restore(ctx)

	cache, err := rag.NewCache(cfg.CacheDir())
	if err != nil {
		slog.Error("failed to create embedding cache", "error", err, "dir", cfg.CacheDir())
		os.Exit(exitRuntime)
	}
	embedder := rag.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Dimension)
	retrieval := rag.NewManager(stores.Context, embedder, cache, log,
		cfg.Cache.GCSchedule, time.Duration(cfg.Cache.MaxAgeDays)*24*time.Hour)

	fetcher := ingest.NewFetcher(cfg.Limits.MaxURLBytes,
		time.Duration(cfg.Limits.URLTimeoutSeconds)*time.Second, cfg.Limits.MaxRedirects)
	ingestor := ingest.NewService(stores, fetcher, ingest.PlainTextExtractor{}, retrieval,
		cfg.Limits.MaxUploadBytes, log)

	if err := ingestor.SeedRules(ctx, cfg.RulesFilePath()); err != nil {
		slog.Warn("rules seeding failed", "path", cfg.RulesFilePath(), "error", err)
	}

	artifactsSvc := artifacts.NewService(stores, provider, log)

	repoRoot := config.ExpandHome(cfg.RepoRoot)
	if repoRoot == "" {
		repoRoot, _ = os.Getwd()
	}
	registry := tools.NewDefaultRegistry(stores, artifactsSvc, repoRoot,
		time.Duration(cfg.Limits.ToolCallTimeoutSeconds)*time.Second, log)

	orchestrator := agent.New(agent.Config{
		Stores:            stores,
		Provider:          provider,
		Tools:             registry,
		Retrieval:         retrieval,
		Ingestor:          ingestor,
		Artifacts:         artifactsSvc,
		Log:               log,
		MaxToolRounds:     cfg.Limits.MaxToolRounds,
		MaxTotalToolCalls: cfg.Limits.MaxTotalToolCalls,
		TurnTimeout:       time.Duration(cfg.Limits.TurnTimeoutSeconds) * time.Second,
		HistoryWindow:     cfg.Limits.HistoryWindow,
		RetrievalTopK:     cfg.Limits.RetrievalTopK,
	})

	srv := server.New(cfg, server.Deps{
		Stores:    stores,
		Agent:     orchestrator,
		Ingestor:  ingestor,
		Retrieval: retrieval,
		Artifacts: artifactsSvc,
		Exporter:  export.NewService(stores, provider),
		Provider:  provider,
		Log:       log,
	})

	slog.Info("hackhero starting",
		"version", Version,
		"addr", cfg.ListenAddr(),
		"backend", storeBackend(cfg),
		"provider", provider.Kind(),
		"model", provider.Model(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		return ingest.NewRulesWatcher(cfg.RulesFilePath(), ingestor, log).Run(ctx)
	})
	g.Go(func() error {
		if err := retrieval.RunGC(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(exitRuntime)
	}
	slog.Info("shutdown complete")
}

func storeBackend(cfg *config.Config) string {
	if cfg.UsePostgres() {
		return "postgres"
	}
	return "sqlite"
}
