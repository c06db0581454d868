package loaders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

// GetCredentialByToken loads the widget credential for a public token.
func (c *PostgresClient) GetCredentialByToken(ctx context.Context, token string) (*core.Credential, error) {
	query := `
        SELECT id::text, tenant_id, token, is_active, provider, provider_secret,
               requests_per_minute, requests_per_day, total_requests, total_tokens,
               last_used_at, expires_at
        FROM widget_credentials
        WHERE token = $1
    `

	var cred core.Credential
	err := c.pool.QueryRow(ctx, query, token).Scan(
		&cred.ID,
		&cred.TenantID,
		&cred.Token,
		&cred.Active,
		&cred.Provider,
		&cred.ProviderSecret,
		&cred.RequestsPerMinute,
		&cred.RequestsPerDay,
		&cred.TotalRequests,
		&cred.TotalTokens,
		&cred.LastUsedAt,
		&cred.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &cred, nil
}

// IncrementUsage adds one request and the given tokens to a credential.
func (c *PostgresClient) IncrementUsage(ctx context.Context, credentialID string, tokens int) error {
	query := `
        UPDATE widget_credentials
        SET total_requests = total_requests + 1,
            total_tokens   = total_tokens + $2,
            last_used_at   = $3
        WHERE id = $1::uuid
    `

	tag, err := c.pool.Exec(ctx, query, credentialID, tokens, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update credential usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTenant loads the tenant profile with its parsed assistant configuration.
func (c *PostgresClient) GetTenant(ctx context.Context, tenantID string) (*core.Tenant, error) {
	query := `
        SELECT id, name, store_url, assistant_config
        FROM tenants
        WHERE id = $1
    `

	var (
		tenant core.Tenant
		raw    []byte
	)
	err := c.pool.QueryRow(ctx, query, tenantID).Scan(&tenant.ID, &tenant.Name, &tenant.StoreURL, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	cfg, err := core.ParseAssistantConfig(raw)
	if err != nil {
		// A malformed document should not take the widget down.
		utils.Zlog.Warn("Invalid assistant config, using defaults",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		cfg = core.DefaultAssistantConfig()
	}
	tenant.Config = cfg
	return &tenant, nil
}

func (c *PostgresClient) ListProducts(ctx context.Context, tenantID string) ([]core.Product, error) {
	query := `
        SELECT id, name, description, price, image_url, url, tags
        FROM products
        WHERE tenant_id = $1
        ORDER BY position, id
    `

	rows, err := c.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []core.Product
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.URL, &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (c *PostgresClient) ListFAQs(ctx context.Context, tenantID string) ([]core.FAQ, error) {
	query := `
        SELECT question, answer
        FROM faqs
        WHERE tenant_id = $1
        ORDER BY position, id
    `

	rows, err := c.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query faqs: %w", err)
	}
	defer rows.Close()

	var faqs []core.FAQ
	for rows.Next() {
		var f core.FAQ
		if err := rows.Scan(&f.Question, &f.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan faq: %w", err)
		}
		faqs = append(faqs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating faqs: %w", err)
	}
	return faqs, nil
}

// ListPageSnapshots returns the tenant's crawled pages, oldest first.
func (c *PostgresClient) ListPageSnapshots(ctx context.Context, tenantID string) ([]core.PageSnapshot, error) {
	query := `
        SELECT id::text, url, title, summary, content, status, crawled_at
        FROM page_snapshots
        WHERE tenant_id = $1
        ORDER BY crawled_at, id
    `

	rows, err := c.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query page snapshots: %w", err)
	}
	defer rows.Close()

	var pages []core.PageSnapshot
	for rows.Next() {
		var p core.PageSnapshot
		if err := rows.Scan(&p.ID, &p.URL, &p.Title, &p.Summary, &p.Content, &p.Status, &p.CrawledAt); err != nil {
			return nil, fmt.Errorf("failed to scan page snapshot: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page snapshots: %w", err)
	}
	return pages, nil
}

// ListActiveNudges returns the tenant's enabled nudges in creation order.
func (c *PostgresClient) ListActiveNudges(ctx context.Context, tenantID string) ([]core.Nudge, error) {
	query := `
        SELECT id, type, is_active, payload
        FROM nudges
        WHERE tenant_id = $1 AND is_active
        ORDER BY created_at, id
    `

	rows, err := c.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nudges: %w", err)
	}
	defer rows.Close()

	var nudges []core.Nudge
	for rows.Next() {
		var (
			n   core.Nudge
			raw []byte
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Active, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan nudge: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &n.Payload); err != nil {
				utils.Zlog.Warn("Skipping nudge with invalid payload",
					zap.String("nudge_id", n.ID),
					zap.Error(err))
				continue
			}
		}
		nudges = append(nudges, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nudges: %w", err)
	}
	return nudges, nil
}
