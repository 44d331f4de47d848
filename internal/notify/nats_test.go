package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetflow/internal/config"
	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	msgs     [][]byte
	err      error
	closed   bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) Flush() error { return nil }
func (c *fakeConn) Close()       { c.closed = true }

func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.msgs))
	for _, m := range c.msgs {
		var v map[string]any
		require.NoError(t, json.Unmarshal(m, &v))
		out = append(out, v)
	}
	return out
}

func TestObserverPublishesTaskAndPlanEvents(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "assetflow.builds", nil)
	obs := p.Observer()

	start := time.Now()
	obs.OnTaskComplete(orchestrator.TaskEvent{
		BuildID: "b1",
		Plan:    "build",
		Record: orchestrator.TaskRecord{
			Name: "styles", Status: orchestrator.StatusFailed,
			Started: start, Finished: start.Add(250 * time.Millisecond), Error: "boom",
		},
	})
	obs.OnPlanComplete(&orchestrator.Report{
		BuildID: "b1", Plan: "build", Started: start, Finished: start.Add(time.Second),
		Tasks: []orchestrator.TaskRecord{{Name: "styles", Status: orchestrator.StatusFailed}},
		Err:   errors.New(`task "styles" failed: boom`),
	})

	assert.Equal(t, []string{"assetflow.builds", "assetflow.builds"}, conn.subjects)
	events := conn.events(t)
	require.Len(t, events, 2)

	task := events[0]
	assert.Equal(t, "b1", task["build_id"])
	assert.Equal(t, "build", task["plan"])
	assert.Equal(t, "styles", task["task"])
	assert.Equal(t, "failed", task["status"])
	assert.InDelta(t, 250, task["duration_ms"], 0)
	assert.Equal(t, "boom", task["error"])
	assert.NotEmpty(t, task["timestamp"])

	plan := events[1]
	_, hasTask := plan["task"]
	assert.False(t, hasTask)
	assert.Equal(t, "failed", plan["status"])
	assert.InDelta(t, 1000, plan["duration_ms"], 0)
}

func TestPublishFailureIsNetworkError(t *testing.T) {
	p := NewPublisher(&fakeConn{err: errors.New("disconnected")}, "s", nil)
	err := p.Publish(Event{BuildID: "b1"})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNetwork))

	// Observer swallows the failure.
	assert.NotPanics(t, func() {
		p.Observer().OnPlanComplete(&orchestrator.Report{BuildID: "b1"})
	})
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), config.NotifyConfig{Subject: "s"}, nil)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestCloseClosesConnection(t *testing.T) {
	conn := &fakeConn{}
	require.NoError(t, NewPublisher(conn, "s", nil).Close())
	assert.True(t, conn.closed)
}
