package runtime

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foldflow/pipeline/types"
)

func TestHistoryLogEntryLifecycle(t *testing.T) {
	h := newHistory(50)
	session := h.beginSession()
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, types.SessionRunning, session.Status)

	h.addLogEntry(&types.ExecutionLogEntry{
		NodeID: "design", NodeLabel: "backbone", NodeType: types.NodeTypeStructureGeneration,
		Status: types.NodeRunning, StartedAt: time.Now().Add(-time.Second),
	})

	now := time.Now()
	status := types.NodeSuccess
	h.updateLogEntry("design", types.LogUpdate{
		Status:      &status,
		CompletedAt: &now,
		Output:      types.Data{"filename": "design_0.pdb"},
	})

	// unknown node id is a no-op
	h.updateLogEntry("ghost", types.LogUpdate{Status: &status})

	current := h.currentSession()
	assert.Equal(t, 1, len(current.Entries))
	entry := current.Entries[0]
	assert.Equal(t, types.NodeSuccess, entry.Status)
	assert.Greater(t, entry.Duration, time.Duration(0))
	name, _ := entry.Output.GetString("filename")
	assert.Equal(t, "design_0.pdb", name)
}

func TestHistorySealing(t *testing.T) {
	h := newHistory(50)
	h.beginSession()
	sealed := h.seal(types.SessionStopped)

	assert.NotNil(t, sealed)
	assert.Equal(t, types.SessionStopped, sealed.Status)
	assert.NotNil(t, sealed.CompletedAt)
	assert.Nil(t, h.currentSession())

	// sealing without an open session is harmless
	assert.Nil(t, h.seal(types.SessionCompleted))
}

func TestHistoryBound(t *testing.T) {
	h := newHistory(50)

	var ids []string
	for i := 0; i < 51; i++ {
		s := h.beginSession()
		s.Entries = append(s.Entries, &types.ExecutionLogEntry{NodeID: fmt.Sprintf("n%d", i)})
		ids = append(ids, s.ID)
		h.seal(types.SessionCompleted)
	}

	sessions := h.sessions()
	assert.Equal(t, 50, len(sessions))
	// most recent first; the oldest session was evicted
	assert.Equal(t, ids[50], sessions[0].ID)
	assert.Equal(t, ids[1], sessions[49].ID)
	for _, s := range sessions {
		assert.NotEqual(t, ids[0], s.ID)
	}
}
