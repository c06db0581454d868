package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Conversly/widget-engine/internal/core"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps sessions in chat_sessions, chat_turns and
// conversion_events. Mutations lock the session row for their whole
// transaction and insert only the appended tail.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = `
    id::text, tenant_id, session_id, chat_name,
    customer_name, customer_email, customer_phone,
    has_conversion, total_tokens, user_agent, page_url, referrer,
    created_at, updated_at`

func (p *PostgresStore) Get(ctx context.Context, tenantID, sessionID string) (*core.Session, error) {
	return loadSession(ctx, p.pool, tenantID, sessionID, false)
}

func (p *PostgresStore) Create(ctx context.Context, s *core.Session) (*core.Session, error) {
	query := `
        INSERT INTO chat_sessions (
            id, tenant_id, session_id, chat_name, user_agent, page_url, referrer,
            created_at, updated_at
        ) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (tenant_id, session_id) DO NOTHING
    `
	_, err := p.pool.Exec(ctx, query,
		s.ID, s.TenantID, s.SessionID, s.ChatName,
		s.Metadata.UserAgent, s.Metadata.PageURL, s.Metadata.Referrer,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return p.Get(ctx, s.TenantID, s.SessionID)
}

func (p *PostgresStore) Mutate(ctx context.Context, tenantID, sessionID string, fn MutateFunc) (*core.Session, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := loadSession(ctx, tx, tenantID, sessionID, true)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := checkAppendOnly(current, next); err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for _, t := range next.Turns[len(current.Turns):] {
		batch.Queue(`
            INSERT INTO chat_turns (session_ref, role, message, tokens, created_at)
            VALUES ($1::uuid, $2, $3, $4, $5)
        `, next.ID, string(t.Role), t.Message, t.Tokens, t.Timestamp)
	}
	for _, ev := range next.Conversions[len(current.Conversions):] {
		var meta []byte
		if ev.Metadata != nil {
			if meta, err = json.Marshal(ev.Metadata); err != nil {
				return nil, fmt.Errorf("failed to encode conversion metadata: %w", err)
			}
		}
		batch.Queue(`
            INSERT INTO conversion_events (session_ref, type, value, currency, metadata, created_at)
            VALUES ($1::uuid, $2, $3, $4, $5, $6)
        `, next.ID, string(ev.Type), ev.Value, ev.Currency, meta, ev.Timestamp)
	}
	batch.Queue(`
        UPDATE chat_sessions
        SET chat_name = $2,
            customer_name = $3,
            customer_email = $4,
            customer_phone = $5,
            has_conversion = $6,
            total_tokens = $7,
            user_agent = $8,
            page_url = $9,
            referrer = $10,
            updated_at = $11
        WHERE id = $1::uuid
    `, next.ID, next.ChatName, next.Lead.Name, next.Lead.Email, next.Lead.Phone,
		next.HasConversion, next.TotalTokens,
		next.Metadata.UserAgent, next.Metadata.PageURL, next.Metadata.Referrer,
		next.UpdatedAt)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return nil, fmt.Errorf("failed to write session %s: %w", sessionID, err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session %s: %w", sessionID, err)
	}
	return next, nil
}

func (p *PostgresStore) CountSessions(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM chat_sessions WHERE tenant_id = $1`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) RecentSessions(ctx context.Context, tenantID, excludeSessionID string, limit, turnsEach int) ([]*core.Session, error) {
	query := `
        SELECT s.id::text, s.session_id, s.updated_at, t.role, t.message, t.created_at
        FROM (
            SELECT id, session_id, updated_at
            FROM chat_sessions
            WHERE tenant_id = $1 AND session_id <> $2
            ORDER BY updated_at DESC
            LIMIT $3
        ) s
        CROSS JOIN LATERAL (
            SELECT id, role, message, created_at
            FROM chat_turns
            WHERE session_ref = s.id
            ORDER BY id DESC
            LIMIT $4
        ) t
        ORDER BY s.updated_at DESC, s.id, t.id ASC
    `

	rows, err := p.pool.Query(ctx, query, tenantID, excludeSessionID, limit, turnsEach)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	var (
		out  []*core.Session
		last *core.Session
	)
	for rows.Next() {
		var (
			id, sid, role string
			turn          core.Turn
			s             core.Session
		)
		if err := rows.Scan(&id, &sid, &s.UpdatedAt, &role, &turn.Message, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan recent turn: %w", err)
		}
		if last == nil || last.ID != id {
			s.ID, s.TenantID, s.SessionID = id, tenantID, sid
			last = &s
			out = append(out, last)
		}
		turn.Role = core.Role(role)
		last.Turns = append(last.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent turns: %w", err)
	}
	return out, nil
}

func loadSession(ctx context.Context, q querier, tenantID, sessionID string, forUpdate bool) (*core.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE tenant_id = $1 AND session_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var s core.Session
	err := q.QueryRow(ctx, query, tenantID, sessionID).Scan(
		&s.ID, &s.TenantID, &s.SessionID, &s.ChatName,
		&s.Lead.Name, &s.Lead.Email, &s.Lead.Phone,
		&s.HasConversion, &s.TotalTokens,
		&s.Metadata.UserAgent, &s.Metadata.PageURL, &s.Metadata.Referrer,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if s.Turns, err = loadTurns(ctx, q, s.ID); err != nil {
		return nil, err
	}
	if s.Conversions, err = loadConversions(ctx, q, s.ID); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadTurns(ctx context.Context, q querier, ref string) ([]core.Turn, error) {
	rows, err := q.Query(ctx, `
        SELECT role, message, tokens, created_at
        FROM chat_turns
        WHERE session_ref = $1::uuid
        ORDER BY id
    `, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var (
			t    core.Turn
			role string
		)
		if err := rows.Scan(&role, &t.Message, &t.Tokens, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Role = core.Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func loadConversions(ctx context.Context, q querier, ref string) ([]core.ConversionEvent, error) {
	rows, err := q.Query(ctx, `
        SELECT type, value, currency, metadata, created_at
        FROM conversion_events
        WHERE session_ref = $1::uuid
        ORDER BY id
    `, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var events []core.ConversionEvent
	for rows.Next() {
		var (
			ev   core.ConversionEvent
			typ  string
			meta []byte
		)
		if err := rows.Scan(&typ, &ev.Value, &ev.Currency, &meta, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		ev.Type = core.ConversionType(typ)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode conversion metadata: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
