// Package audit records one structured event for every cache and storage
// outcome, to two destinations: a local append-only file and a capped
// most-recent-first ring in the cache backend. The audit trail alone must
// be enough to reconstruct any failure.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
)

// RecentKey is the ring key in the cache backend holding recent events.
const RecentKey = "audit:recent"

// Recorder is the append-only event sink. Recorder failures are reported on
// the fallback logger and never interrupt the calling operation.
type Recorder struct {
	sink      *slog.Logger
	file      *os.File
	cache     cache.Cache
	logger    *slog.Logger // secondary channel for recorder failures
	recentMax int64
}

// NewRecorder opens (creating if needed) the append log at path. recentMax
// caps the recent-events ring in the cache backend.
func NewRecorder(path string, c cache.Cache, logger *slog.Logger, recentMax int64) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	if recentMax <= 0 {
		recentMax = 1000
	}

	return &Recorder{
		sink:      slog.New(slog.NewJSONHandler(f, nil)),
		file:      f,
		cache:     c,
		logger:    logger,
		recentMax: recentMax,
	}, nil
}

// Record appends the event to both sinks. It never returns an error; any
// failure goes to the secondary logger only.
func (r *Recorder) Record(ctx context.Context, e domain.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	r.sink.LogAttrs(ctx, slog.LevelInfo, e.Action,
		slog.String("event_id", e.ID),
		slog.String("resource", e.Resource),
		slog.Int64("owner_id", e.OwnerID),
		slog.Int64("item_id", e.ItemID),
		slog.String("filter", e.Filter),
		slog.String("outcome", e.Outcome),
		slog.String("error", e.Error),
	)

	payload, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("audit event encode failed", "action", e.Action, "err", err)
		return
	}
	// Append absorbs backend failures into the fallback queue itself.
	r.cache.Append(ctx, RecentKey, payload, r.recentMax)
}

// Close releases the append log file handle.
func (r *Recorder) Close() error { return r.file.Close() }
