// Command indexer rebuilds one tenant's knowledge chunks from its crawled
// pages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/config"
	"github.com/Conversly/widget-engine/internal/embedder"
	"github.com/Conversly/widget-engine/internal/ingest"
	"github.com/Conversly/widget-engine/internal/loaders"
	"github.com/Conversly/widget-engine/internal/utils"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant id to index")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: Error loading .env file", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *tenantID == "" {
		fmt.Println("usage: indexer -tenant <tenant id>")
		os.Exit(2)
	}

	cleanup := utils.InitLogger(cfg)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *tenantID); err != nil {
		utils.Zlog.Error("Indexing failed", zap.String("tenant_id", *tenantID), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, tenantID string) error {
	if cfg.DBAutoMigrate {
		if err := loaders.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	db, err := loaders.NewPostgresClient(ctx, cfg.DatabaseURL, cfg.DBMaxConnections)
	if err != nil {
		return err
	}
	defer db.Close()

	emb, err := embedder.New(ctx, cfg, embedder.TaskRetrievalDocument)
	if err != nil {
		return err
	}

	ix, err := ingest.NewIndexer(ctx, db, db, emb, cfg.KnowledgeChunkLimit)
	if err != nil {
		return err
	}

	stats, err := ix.Index(ctx, tenantID)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d pages into %d chunks (%d dropped, %d skipped)\n",
		stats.Pages, stats.Chunks, stats.Dropped, stats.Skipped)
	return nil
}
