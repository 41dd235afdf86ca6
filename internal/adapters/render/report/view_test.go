package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

func TestRenderSuccessfulRun(t *testing.T) {
	start := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	output, err := Render(domain.Report{
		RunID:     "run-1",
		StartedAt: start,
		Deadline:  start.Add(100 * time.Millisecond),
		Stages: []domain.StageReport{
			{Stage: domain.StageInit},
			{Stage: domain.StageLogOn, Elapsed: 50 * time.Millisecond},
			{Stage: domain.StageStatsRequest, Elapsed: 10 * time.Millisecond},
			{Stage: domain.StageSetAchievement},
			{Stage: domain.StageStore, Elapsed: 10 * time.Millisecond},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Unlock run run-1")
	assert.Contains(t, output, "budget: 100ms  used: 70ms")
	assert.Contains(t, output, "logon")
	assert.Contains(t, output, "50ms")
	assert.Contains(t, output, "[============------------]")
	assert.Contains(t, output, "ok")
	assert.NotContains(t, output, "timeout")
}

func TestRenderFailedRun(t *testing.T) {
	start := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	output, err := Render(domain.Report{
		RunID:     "run-2",
		StartedAt: start,
		Deadline:  start.Add(100 * time.Millisecond),
		Stages: []domain.StageReport{
			{Stage: domain.StageInit},
			{Stage: domain.StageLogOn, Elapsed: 110 * time.Millisecond, Failure: domain.FailureTimeout},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "timeout")
	assert.Contains(t, output, "[========================]")
}

func TestRenderEmptyRun(t *testing.T) {
	output, err := Render(domain.Report{})

	require.NoError(t, err)
	assert.Contains(t, output, "Unlock run")
	assert.Contains(t, output, "No stage was started.")
}

func TestSharePercent(t *testing.T) {
	assert.Equal(t, 0.0, sharePercent(time.Second, 0))
	assert.Equal(t, 25.0, sharePercent(25*time.Millisecond, 100*time.Millisecond))
	assert.Equal(t, 100.0, sharePercent(time.Second, 100*time.Millisecond))
}
