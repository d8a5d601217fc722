package runtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foldflow/pipeline/types"
)

// history owns the mutable current session and the bounded ring of sealed
// past sessions (most-recent-first). Only the orchestrator writes it.
type history struct {
	mu sync.Mutex

	limit   int
	current *types.ExecutionSession
	sealed  []*types.ExecutionSession
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = 50
	}
	return &history{limit: limit}
}

// beginSession opens a fresh current session, discarding any unsealed one.
func (h *history) beginSession() *types.ExecutionSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = &types.ExecutionSession{
		ID:        uuid.New().String(),
		Status:    types.SessionRunning,
		StartedAt: time.Now(),
	}
	return h.current
}

func (h *history) currentSession() *types.ExecutionSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *history) addLogEntry(entry *types.ExecutionLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil {
		return
	}
	h.current.Entries = append(h.current.Entries, entry)
}

// updateLogEntry patches the open entry for nodeID within the current session.
// At most one entry exists per node per session, so the first match wins.
func (h *history) updateLogEntry(nodeID string, update types.LogUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil {
		return
	}
	for _, e := range h.current.Entries {
		if e.NodeID != nodeID {
			continue
		}
		applyLogUpdate(e, update)
		return
	}
}

func applyLogUpdate(e *types.ExecutionLogEntry, update types.LogUpdate) {
	if update.Status != nil {
		e.Status = *update.Status
	}
	if update.CompletedAt != nil {
		e.CompletedAt = update.CompletedAt
		e.Duration = update.CompletedAt.Sub(e.StartedAt)
	}
	if update.Error != nil {
		e.Error = *update.Error
	}
	if update.Request != nil {
		e.Request = update.Request
	}
	if update.Response != nil {
		e.Response = update.Response
	}
	if update.Output != nil {
		e.Output = update.Output.Clone()
	}
}

// seal closes the current session with the given status and pushes it onto the
// bounded ring, evicting the oldest beyond the cap.
func (h *history) seal(status types.SessionStatus) *types.ExecutionSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil {
		return nil
	}
	now := time.Now()
	h.current.Status = status
	h.current.CompletedAt = &now

	sealed := h.current
	h.current = nil

	h.sealed = append([]*types.ExecutionSession{sealed}, h.sealed...)
	if len(h.sealed) > h.limit {
		h.sealed = h.sealed[:h.limit]
	}
	return sealed
}

// sessions returns the sealed sessions, most recent first.
func (h *history) sessions() []*types.ExecutionSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*types.ExecutionSession, len(h.sealed))
	copy(out, h.sealed)
	return out
}
