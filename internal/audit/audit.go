// Package audit keeps an append-only record of privileged and credit-affecting
// actions. Appending is best-effort: a storage failure is logged and swallowed
// so auditing never blocks the caller.
package audit

import (
	"context"
	"time"

	"ficore.org/internal/ids"
	"ficore.org/internal/obs"
)

// SystemActor identifies actions taken by the process itself.
const SystemActor = "system"

// Entry is one immutable audit record. Timestamps are UTC.
type Entry struct {
	ID        string         `bson:"_id" json:"id"`
	Actor     string         `bson:"actor" json:"actor"`
	Action    string         `bson:"action" json:"action"`
	Details   map[string]any `bson:"details" json:"details"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
}

// Store persists audit entries.
type Store interface {
	AppendEntry(ctx context.Context, e Entry) error
	ListEntries(ctx context.Context, limit int) ([]Entry, error)
}

// Log writes audit entries to a Store and mirrors them to the structured log.
type Log struct {
	store Store
	now   func() time.Time
}

// New constructs an audit log over the given store.
func New(store Store) *Log {
	return &Log{store: store, now: time.Now}
}

// Append records an action. Failures are logged, never returned.
func (l *Log) Append(ctx context.Context, actor, action string, details map[string]any) {
	if actor == "" {
		actor = SystemActor
	}
	if details == nil {
		details = map[string]any{}
	}
	e := Entry{
		ID:        ids.New(),
		Actor:     actor,
		Action:    action,
		Details:   details,
		Timestamp: l.now().UTC(),
	}
	if err := l.store.AppendEntry(ctx, e); err != nil {
		obs.Error("audit append failed", obs.RequestContext{}, obs.Fields{
			"actor": actor, "action": action, "error": err.Error(),
		})
		return
	}
	obs.Info("audit", obs.RequestContext{}, obs.Fields{
		"actor": actor, "action": action, "fields": details,
	})
}

// Recent returns the latest entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return l.store.ListEntries(ctx, limit)
}
