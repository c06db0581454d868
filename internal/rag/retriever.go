package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

// ChunkSource loads a tenant's full knowledge chunk set.
type ChunkSource interface {
	ListKnowledgeChunks(ctx context.Context, tenantID string) ([]core.KnowledgeChunk, error)
}

// Retriever embeds a query and ranks the tenant's chunks against it.
type Retriever struct {
	chunks   ChunkSource
	embedder embedding.Embedder
	topK     int
}

func NewRetriever(chunks ChunkSource, embedder embedding.Embedder) *Retriever {
	return &Retriever{chunks: chunks, embedder: embedder, topK: DefaultTopK}
}

// Retrieve returns the top chunks for query. Tenants without chunks never
// reach the embedding provider. Failures are RETRIEVAL_DEGRADED.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string) ([]ScoredChunk, error) {
	const op = "rag.Retrieve"
	start := time.Now()

	chunks, err := r.chunks.ListKnowledgeChunks(ctx, tenantID)
	if err != nil {
		return nil, utils.E(utils.CodeRetrievalDegraded, op, "failed to load knowledge", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, utils.E(utils.CodeRetrievalDegraded, op, "failed to embed query", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, utils.E(utils.CodeRetrievalDegraded, op, "embedding provider returned no vector", nil)
	}

	ranked := Rank(vectors[0], chunks, r.topK)

	utils.Zlog.Debug("Ranked knowledge chunks",
		zap.String("tenant_id", tenantID),
		zap.Int("candidates", len(chunks)),
		zap.Int("returned", len(ranked)),
		zap.Duration("latency", time.Since(start)))

	return ranked, nil
}

// FormatContext renders ranked chunks as "[url]\ntext" blocks.
func FormatContext(chunks []ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[%s]\n%s", c.SourceURL, c.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
