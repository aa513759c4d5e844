package services

import (
	"context"
	"fmt"
	"time"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

type TimeEntryInput struct {
	StartedAt *time.Time `json:"started_at"`
	Note      string     `json:"note" validate:"max=1000"`
}

// TimeSummary is the tracked time on a job.
type TimeSummary struct {
	Entries      []models.TimeEntry `json:"entries"`
	TotalMinutes int                `json:"total_minutes"`
}

// TimeTracking records technician work periods on jobs.
type TimeTracking struct {
	store TimeStore
	now   func() time.Time
}

func NewTimeTracking(store TimeStore) *TimeTracking {
	return &TimeTracking{store: store, now: time.Now}
}

func (s *TimeTracking) Start(ctx context.Context, jobID uint, profileID string, in TimeEntryInput) (*models.TimeEntry, error) {
	j, err := s.store.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status == billing.JobCancelled || j.Status == billing.JobInvoiced {
		return nil, fmt.Errorf("%w: job is %s", ErrInvalidInput, j.Status)
	}
	started := s.now().UTC()
	if in.StartedAt != nil {
		started = in.StartedAt.UTC()
	}
	e := &models.TimeEntry{JobID: j.ID, ProfileID: profileID, StartedAt: started, Note: in.Note}
	if err := s.store.CreateTimeEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *TimeTracking) Stop(ctx context.Context, jobID, entryID uint) (*models.TimeEntry, error) {
	return s.store.StopTimeEntry(ctx, jobID, entryID, s.now().UTC())
}

func (s *TimeTracking) Summary(ctx context.Context, jobID uint) (TimeSummary, error) {
	entries, err := s.store.TimeEntries(ctx, jobID)
	if err != nil {
		return TimeSummary{}, err
	}
	now := s.now()
	total := 0
	for _, e := range entries {
		total += e.Minutes(now)
	}
	return TimeSummary{Entries: entries, TotalMinutes: total}, nil
}
