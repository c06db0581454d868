// Package session owns visitor conversations: lifecycle, append-only
// transcripts, lead capture and cross-session recall.
package session

import (
	"context"
	"errors"

	"github.com/Conversly/widget-engine/internal/core"
)

var (
	ErrNotFound = errors.New("session not found")

	errShrunk = errors.New("session history is append-only")
)

// MutateFunc edits a private copy of the session. Returning an error
// discards every change.
type MutateFunc func(s *core.Session) error

// Store persists sessions. Mutate must serialize concurrent calls on the
// same (tenant, session) pair; different sessions never block each other.
type Store interface {
	Get(ctx context.Context, tenantID, sessionID string) (*core.Session, error)
	// Create inserts s unless the pair already exists, and returns the
	// stored session either way.
	Create(ctx context.Context, s *core.Session) (*core.Session, error)
	Mutate(ctx context.Context, tenantID, sessionID string, fn MutateFunc) (*core.Session, error)
	CountSessions(ctx context.Context, tenantID string) (int, error)
	// RecentSessions returns the most recently updated sessions other than
	// excludeSessionID, each trimmed to its last turnsEach turns.
	RecentSessions(ctx context.Context, tenantID, excludeSessionID string, limit, turnsEach int) ([]*core.Session, error)
}

// checkAppendOnly rejects a mutation that dropped turns or conversions.
func checkAppendOnly(before, after *core.Session) error {
	if len(after.Turns) < len(before.Turns) || len(after.Conversions) < len(before.Conversions) {
		return errShrunk
	}
	// hasConversion is sticky.
	if before.HasConversion {
		after.HasConversion = true
	}
	return nil
}
