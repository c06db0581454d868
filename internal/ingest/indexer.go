// Package ingest turns a tenant's crawled pages into embedded knowledge
// chunks.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	urlloader "github.com/cloudwego/eino-ext/components/document/loader/url"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 200
	EmbedBatch   = 32
	DefaultLimit = 300
)

type SnapshotSource interface {
	ListPageSnapshots(ctx context.Context, tenantID string) ([]core.PageSnapshot, error)
}

// ChunkSink atomically replaces a tenant's web chunks.
type ChunkSink interface {
	ReplaceKnowledgeChunks(ctx context.Context, tenantID string, chunks []core.KnowledgeChunk) error
}

// Stats summarises one indexing run.
type Stats struct {
	Pages   int
	Fetched int
	Skipped int
	Chunks  int
	Dropped int
}

type Indexer struct {
	snapshots SnapshotSource
	sink      ChunkSink
	embedder  embedding.Embedder
	loader    document.Loader
	splitter  document.Transformer
	limit     int
}

type Option func(*Indexer)

// WithLoader replaces the URL loader used for pages without stored text.
func WithLoader(l document.Loader) Option {
	return func(ix *Indexer) { ix.loader = l }
}

func WithSplitter(s document.Transformer) Option {
	return func(ix *Indexer) { ix.splitter = s }
}

func NewIndexer(ctx context.Context, snapshots SnapshotSource, sink ChunkSink, emb embedding.Embedder, limit int, opts ...Option) (*Indexer, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ix := &Indexer{snapshots: snapshots, sink: sink, embedder: emb, limit: limit}
	for _, opt := range opts {
		opt(ix)
	}

	if ix.loader == nil {
		loader, err := urlloader.NewLoader(ctx, &urlloader.LoaderConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to create url loader: %w", err)
		}
		ix.loader = loader
	}
	if ix.splitter == nil {
		splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
			ChunkSize:   ChunkSize,
			OverlapSize: ChunkOverlap,
			Separators:  []string{"\n\n", "\n", ". ", " "},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create splitter: %w", err)
		}
		ix.splitter = splitter
	}
	return ix, nil
}

// Index rebuilds the tenant's knowledge chunks from its successful page
// snapshots. Chunks past the limit are dropped.
func (ix *Indexer) Index(ctx context.Context, tenantID string) (Stats, error) {
	start := time.Now()
	var stats Stats

	pages, err := ix.snapshots.ListPageSnapshots(ctx, tenantID)
	if err != nil {
		return stats, fmt.Errorf("failed to list page snapshots: %w", err)
	}

	var chunks []core.KnowledgeChunk
	for _, page := range pages {
		if page.Status != core.SnapshotStatusSuccess {
			continue
		}
		stats.Pages++

		text, fetched, err := ix.pageText(ctx, page)
		if err != nil {
			utils.Zlog.Warn("Skipping page", zap.String("url", page.URL), zap.Error(err))
			stats.Skipped++
			continue
		}
		if fetched {
			stats.Fetched++
		}
		if strings.TrimSpace(text) == "" {
			stats.Skipped++
			continue
		}

		parts, err := ix.splitter.Transform(ctx, []*schema.Document{{ID: page.ID, Content: text}})
		if err != nil {
			return stats, fmt.Errorf("failed to split %s: %w", page.URL, err)
		}
		idx := 0
		for _, p := range parts {
			if strings.TrimSpace(p.Content) == "" {
				continue
			}
			chunks = append(chunks, core.KnowledgeChunk{
				TenantID:   tenantID,
				SourceURL:  page.URL,
				ChunkIndex: idx,
				Text:       p.Content,
				SourceType: core.SourceTypeWeb,
			})
			idx++
		}
	}

	if len(chunks) > ix.limit {
		stats.Dropped = len(chunks) - ix.limit
		utils.Zlog.Warn("Knowledge chunk limit reached, dropping the rest",
			zap.String("tenant_id", tenantID),
			zap.Int("limit", ix.limit),
			zap.Int("dropped", stats.Dropped))
		chunks = chunks[:ix.limit]
	}

	if err := ix.embed(ctx, chunks); err != nil {
		return stats, err
	}
	if err := ix.sink.ReplaceKnowledgeChunks(ctx, tenantID, chunks); err != nil {
		return stats, fmt.Errorf("failed to store chunks: %w", err)
	}
	stats.Chunks = len(chunks)

	utils.Zlog.Info("Knowledge indexed",
		zap.String("tenant_id", tenantID),
		zap.Int("pages", stats.Pages),
		zap.Int("fetched", stats.Fetched),
		zap.Int("chunks", stats.Chunks),
		zap.Duration("elapsed", time.Since(start)))
	return stats, nil
}

// pageText returns the stored page text, fetching the page when the crawler
// kept none.
func (ix *Indexer) pageText(ctx context.Context, page core.PageSnapshot) (string, bool, error) {
	if strings.TrimSpace(page.Content) != "" {
		return page.Content, false, nil
	}
	docs, err := ix.loader.Load(ctx, document.Source{URI: page.URL})
	if err != nil {
		return "", false, err
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n"), true, nil
}

func (ix *Indexer) embed(ctx context.Context, chunks []core.KnowledgeChunk) error {
	for start := 0; start < len(chunks); start += EmbedBatch {
		end := min(start+EmbedBatch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vectors, err := ix.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for i, v := range vectors {
			vec := make([]float32, len(v))
			for j, x := range v {
				vec[j] = float32(x)
			}
			chunks[start+i].Embedding = vec
		}
	}
	return nil
}
