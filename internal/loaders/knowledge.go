package loaders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

// ListKnowledgeChunks loads every web chunk of a tenant in insertion order.
// The set is capped at indexing time, so a full scan stays small.
func (c *PostgresClient) ListKnowledgeChunks(ctx context.Context, tenantID string) ([]core.KnowledgeChunk, error) {
	query := `
        SELECT id, source_url, chunk_index, text, embedding
        FROM knowledge_chunks
        WHERE tenant_id = $1 AND source_type = $2
        ORDER BY id
    `

	rows, err := c.pool.Query(ctx, query, tenantID, core.SourceTypeWeb)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge chunks: %w", err)
	}
	defer rows.Close()

	var chunks []core.KnowledgeChunk
	for rows.Next() {
		var (
			ch  core.KnowledgeChunk
			vec pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.SourceURL, &ch.ChunkIndex, &ch.Text, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		ch.TenantID = tenantID
		ch.SourceType = core.SourceTypeWeb
		ch.Embedding = vec.Slice()
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge chunks: %w", err)
	}
	return chunks, nil
}

// ReplaceKnowledgeChunks swaps a tenant's web chunks in one transaction so
// readers see either the old set or the new one.
func (c *PostgresClient) ReplaceKnowledgeChunks(ctx context.Context, tenantID string, chunks []core.KnowledgeChunk) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE tenant_id = $1 AND source_type = $2`,
		tenantID, core.SourceTypeWeb,
	); err != nil {
		return fmt.Errorf("failed to clear knowledge chunks: %w", err)
	}

	batch := &pgx.Batch{}
	for _, ch := range chunks {
		batch.Queue(`
            INSERT INTO knowledge_chunks (tenant_id, source_url, chunk_index, text, embedding, source_type)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, tenantID, ch.SourceURL, ch.ChunkIndex, ch.Text, pgvector.NewVector(ch.Embedding), core.SourceTypeWeb)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert knowledge chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit knowledge chunks: %w", err)
	}

	utils.Zlog.Info("Replaced knowledge chunks",
		zap.String("tenant_id", tenantID),
		zap.Int("count", len(chunks)))
	return nil
}
