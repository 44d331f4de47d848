package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetflow/internal/history"
	"git.home.luguber.info/inful/assetflow/internal/orchestrator"
)

func TestBuildSummary(t *testing.T) {
	start := time.Now()
	r := &orchestrator.Report{
		BuildID:  "0123456789abcdef",
		Plan:     "build",
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
		Tasks: []orchestrator.TaskRecord{
			{Name: "styles", Status: orchestrator.StatusSucceeded, Started: start, Finished: start.Add(120 * time.Millisecond)},
			{Name: "html", Status: orchestrator.StatusFailed, Started: start, Finished: start.Add(2 * time.Second)},
			{Name: "generate-service-worker", Status: orchestrator.StatusSkipped},
		},
		Err: errors.New("boom"),
	}

	out := BuildSummary(r)
	assert.Contains(t, out, "build 0123456789abcdef")
	assert.Contains(t, out, "styles")
	assert.Contains(t, out, "120ms")
	assert.Contains(t, out, "2s")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "✗ failed in 1.5s")
}

func TestGraph(t *testing.T) {
	reg := orchestrator.NewRegistry()
	for _, name := range orchestrator.BuildTasks() {
		require.NoError(t, reg.RegisterFunc(name, "", func(context.Context) error { return nil }))
	}
	plans, err := orchestrator.NewPlans(reg)
	require.NoError(t, err)

	out := Graph(plans.Build)
	assert.Contains(t, out, "plan build")
	assert.Contains(t, out, "generate-service-worker")
	assert.Contains(t, out, "copy-sw-scripts")
}

func TestHistory(t *testing.T) {
	now := time.Now()
	assert.Contains(t, History(nil, now), "No builds recorded yet.")

	out := History([]history.Build{{
		ID: "abcdef0123456789", Plan: "build", Status: "succeeded",
		Started: now.Add(-2 * time.Hour), Finished: now.Add(-2*time.Hour + 800*time.Millisecond),
	}}, now)
	assert.Contains(t, out, "abcdef01")
	assert.NotContains(t, out, "abcdef0123")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "800ms")
}

func TestServeBanner(t *testing.T) {
	out := ServeBanner("assetflow serve", "http://localhost:3000/", "serving .tmp, app")
	assert.Contains(t, out, "http://localhost:3000/")
	assert.Contains(t, out, "serving .tmp, app")
}

func TestBuildDetail(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	out := BuildDetail(history.Build{
		ID: "b1", Plan: "build", Status: "failed", Started: start, Finished: start.Add(3 * time.Second),
		Tasks: []history.Task{
			{Name: "scripts", Status: "failed", Started: start, Finished: start.Add(40 * time.Millisecond), Error: "invalid script"},
			{Name: "generate-service-worker", Status: "skipped"},
		},
	})
	assert.Contains(t, out, "build b1")
	assert.Contains(t, out, "invalid script")
	assert.Contains(t, out, "40ms")
	assert.Contains(t, out, "✗ failed in 3s (2026-05-01T12:00:00Z)")
}
