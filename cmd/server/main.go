package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meilisearch/meilisearch-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"legalconnect.io/portal/internal/bootstrap"
	"legalconnect.io/portal/internal/config"
	"legalconnect.io/portal/internal/metrics"
	catalogRepo "legalconnect.io/portal/internal/modules/catalog/repository"
	faqRepo "legalconnect.io/portal/internal/modules/faq/repository"
	faqService "legalconnect.io/portal/internal/modules/faq/service"
	"legalconnect.io/portal/internal/server"
	"legalconnect.io/portal/internal/telemetry"
	"legalconnect.io/portal/pkg/cache"
	"legalconnect.io/portal/pkg/database"
	"legalconnect.io/portal/pkg/storage"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "LegalConnect registration and sign-in backend",
	Long: `Serves the registration form sessions, sign-in, catalogs and FAQ widget
of the LegalConnect marketplace.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		zapConfig := zap.NewProductionConfig()
		if cfg.IsDevelopment() {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate, seed and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and load the seed catalogs and FAQs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cfg.DSN(), cfg.IsDevelopment())
		if err != nil {
			return err
		}
		return migrateAndSeed(cmd.Context(), db)
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push every answered FAQ to the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cfg.DSN(), cfg.IsDevelopment())
		if err != nil {
			return err
		}
		meili := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		if err := faqRepo.EnsureSettings(meili); err != nil {
			return err
		}

		svc := faqService.NewFAQService(faqRepo.NewFAQRepository(db), faqRepo.NewMeiliFAQIndex(meili), logger)
		n, err := svc.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("faqs reindexed", zap.Int("documents", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, reindexCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, "legalconnect-portal", cfg.AppEnv)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.DSN(), cfg.IsDevelopment())
	if err != nil {
		return err
	}
	if err := migrateAndSeed(ctx, db); err != nil {
		return err
	}

	redisClient, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var meili meilisearch.ServiceManager = meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	if err := faqRepo.EnsureSettings(meili); err != nil {
		logger.Warn("meilisearch unavailable, faq search falls back to the database", zap.Error(err))
		meili = nil
	}

	documents, err := storage.NewCloudinaryStorage(cfg.CloudinaryCloudName)
	if err != nil {
		logger.Warn("document uploads disabled", zap.Error(err))
		documents = nil
	}

	srv := server.NewServer(server.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   redisClient,
		Meili:   meili,
		Storage: documents,
		Metrics: metrics.New(),
		Logger:  logger,
	})

	if meili != nil {
		if n, err := srv.ReindexFAQs(ctx); err != nil {
			logger.Warn("faq reindex failed", zap.Error(err))
		} else {
			logger.Info("faqs indexed", zap.Int("documents", n))
		}
	}

	return srv.Run(ctx, ":"+cfg.Port)
}

func migrateAndSeed(ctx context.Context, db *gorm.DB) error {
	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	seeds, err := bootstrap.LoadSeeds()
	if err != nil {
		return err
	}
	if err := bootstrap.SeedCatalogs(ctx, catalogRepo.NewCatalogRepository(db), seeds); err != nil {
		return err
	}
	return bootstrap.SeedFAQs(ctx, faqRepo.NewFAQRepository(db), seeds)
}
