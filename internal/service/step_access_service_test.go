package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/csmht/signlab-api/internal/models"
)

func TestStepAccessServiceSequenceGating(t *testing.T) {
	sessions := newMemorySessionRepo()
	experiments := newMemoryExperimentRepo()
	progress := newMemoryProgressRepo()

	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sessionID := seedSessionFixture(t, sessions, experiments, anchor)

	svc := NewStepAccessService(sessions, experiments, progress, nil, 0, testLogger()).(*stepAccessService)
	svc.now = func() time.Time { return anchor.Add(35 * time.Minute) }

	// Quiz window is open but the video is incomplete.
	check, err := svc.CheckAccess(context.Background(), 100, sessionID, 2)
	require.NoError(t, err)
	require.False(t, check.Accessible)
	require.Equal(t, "PREVIOUS_NOT_COMPLETED", check.Decision)

	require.NoError(t, progress.Create(context.Background(), &models.StepProgress{
		SessionID: sessionID, StudentID: 100, StepID: 11, Completed: true,
	}))

	check, err = svc.CheckAccess(context.Background(), 100, sessionID, 2)
	require.NoError(t, err)
	require.True(t, check.Accessible)
	require.Equal(t, "ACCESSIBLE", check.Decision)
	require.NotNil(t, check.WindowStart)
	require.Equal(t, anchor.Add(30*time.Minute), *check.WindowStart)
	require.NotNil(t, check.WindowEnd)
	require.Equal(t, anchor.Add(75*time.Minute), *check.WindowEnd)
}

func TestStepAccessServiceWindowBounds(t *testing.T) {
	sessions := newMemorySessionRepo()
	experiments := newMemoryExperimentRepo()
	progress := newMemoryProgressRepo()

	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sessionID := seedSessionFixture(t, sessions, experiments, anchor)

	require.NoError(t, progress.Create(context.Background(), &models.StepProgress{
		SessionID: sessionID, StudentID: 100, StepID: 11, Completed: true,
	}))

	svc := NewStepAccessService(sessions, experiments, progress, nil, 0, testLogger()).(*stepAccessService)

	svc.now = func() time.Time { return anchor.Add(10 * time.Minute) }
	check, err := svc.CheckAccess(context.Background(), 100, sessionID, 2)
	require.NoError(t, err)
	require.Equal(t, "NOT_STARTED", check.Decision)

	svc.now = func() time.Time { return anchor.Add(80 * time.Minute) }
	check, err = svc.CheckAccess(context.Background(), 100, sessionID, 2)
	require.NoError(t, err)
	require.Equal(t, "EXPIRED", check.Decision)
}

func TestStepAccessServiceRescheduleMovesWindows(t *testing.T) {
	sessions := newMemorySessionRepo()
	experiments := newMemoryExperimentRepo()
	progress := newMemoryProgressRepo()

	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sessionID := seedSessionFixture(t, sessions, experiments, anchor)

	svc := NewStepAccessService(sessions, experiments, progress, nil, 0, testLogger()).(*stepAccessService)
	svc.now = func() time.Time { return anchor.Add(10 * time.Minute) }

	check, err := svc.CheckAccess(context.Background(), 100, sessionID, 1)
	require.NoError(t, err)
	require.True(t, check.Accessible)

	// Pushing the anchor forward closes the first window on the next check.
	newStart := anchor.Add(2 * time.Hour)
	require.NoError(t, sessions.Reschedule(context.Background(), sessionID, newStart, newStart.Add(3*time.Hour)))

	check, err = svc.CheckAccess(context.Background(), 100, sessionID, 1)
	require.NoError(t, err)
	require.Equal(t, "NOT_STARTED", check.Decision)
}

func TestStepAccessServiceUnknownTargets(t *testing.T) {
	sessions := newMemorySessionRepo()
	experiments := newMemoryExperimentRepo()
	progress := newMemoryProgressRepo()

	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sessionID := seedSessionFixture(t, sessions, experiments, anchor)

	svc := NewStepAccessService(sessions, experiments, progress, nil, 0, testLogger())

	_, err := svc.CheckAccess(context.Background(), 100, sessionID, 9)
	require.ErrorIs(t, err, ErrStepNotFound)

	_, err = svc.CheckAccess(context.Background(), 100, 42, 1)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStepAccessServicePreviewWindowsCached(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	sessions := newMemorySessionRepo()
	experiments := newMemoryExperimentRepo()
	progress := newMemoryProgressRepo()

	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sessionID := seedSessionFixture(t, sessions, experiments, anchor)

	svc := NewStepAccessService(sessions, experiments, progress, redisClient, time.Minute, testLogger())

	preview, err := svc.PreviewWindows(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, preview, 3)
	require.Equal(t, anchor, *preview[0].WindowStart)
	require.Equal(t, anchor.Add(75*time.Minute), *preview[2].WindowStart)

	require.True(t, server.Exists("signlab:windows:1"))

	// Served from cache on the second call.
	cached, err := svc.PreviewWindows(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, preview, cached)
}
