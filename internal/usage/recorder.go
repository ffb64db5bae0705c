// Package usage records each successful Apollo call in the caller's search
// history without holding up the response.
package usage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/prospector/pkg/models"
)

// DefaultWriteTimeout bounds a single history insert.
const DefaultWriteTimeout = 5 * time.Second

// HistoryWriter is the subset of the store the recorder needs.
type HistoryWriter interface {
	CreateHistoryEntry(ctx context.Context, entry *models.HistoryEntry) error
}

// Recorder writes history rows in background goroutines. Write failures are
// logged and dropped; they never reach the caller.
type Recorder struct {
	writer  HistoryWriter
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

// NewRecorder creates a Recorder. A non-positive timeout uses DefaultWriteTimeout.
func NewRecorder(w HistoryWriter, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Recorder{
		writer:  w,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record dispatches one history insert and returns immediately. params is
// stored verbatim; a nil value is stored as an empty object.
func (r *Recorder) Record(ownerID uuid.UUID, toolName string, params json.RawMessage, resultCount int) {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	entry := &models.HistoryEntry{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		ToolName:    toolName,
		QueryParams: params,
		ResultCount: resultCount,
		CreatedAt:   r.now(),
	}

	r.wg.Add(1)
	go r.write(entry)
}

func (r *Recorder) write(entry *models.HistoryEntry) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic recording usage", "error", rec, "tool", entry.ToolName, "user_id", entry.OwnerID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.writer.CreateHistoryEntry(ctx, entry); err != nil {
		slog.Error("failed to record usage",
			"error", err,
			"tool", entry.ToolName,
			"user_id", entry.OwnerID,
		)
	}
}

// Close waits for in-flight writes, or until ctx is done.
func (r *Recorder) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
