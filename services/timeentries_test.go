package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-backend/billing"
)

func TestTimeTracking(t *testing.T) {
	store := newMemStore()
	docs := newTestDocuments(store)
	ctx := context.Background()

	j, err := docs.CreateJob(ctx, DocumentInput{CustomerID: 1})
	require.NoError(t, err)

	clock := fixedNow
	s := NewTimeTracking(store)
	s.now = func() time.Time { return clock }

	e, err := s.Start(ctx, j.ID, "p-1", TimeEntryInput{Note: "on site"})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, e.StartedAt)

	clock = fixedNow.Add(90 * time.Minute)
	stopped, err := s.Stop(ctx, j.ID, e.ID)
	require.NoError(t, err)
	require.NotNil(t, stopped.EndedAt)

	clock = fixedNow.Add(5 * time.Hour)
	sum, err := s.Summary(ctx, j.ID)
	require.NoError(t, err)
	assert.Len(t, sum.Entries, 1)
	assert.Equal(t, 90, sum.TotalMinutes)
}

func TestTimeTrackingRejectsClosedJob(t *testing.T) {
	store := newMemStore()
	docs := newTestDocuments(store)
	ctx := context.Background()

	j, err := docs.CreateJob(ctx, DocumentInput{CustomerID: 1})
	require.NoError(t, err)
	_, _, err = docs.SetJobStatus(ctx, j.ID, billing.JobCancelled)
	require.NoError(t, err)

	_, err = NewTimeTracking(store).Start(ctx, j.ID, "p-1", TimeEntryInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
