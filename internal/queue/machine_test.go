package queue

import (
	"errors"
	"testing"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var machineBase = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func entryIn(status models.Status) models.QueueEntry {
	entry := models.QueueEntry{
		ID:           "entry-1",
		QueueCode:    "A-001",
		Sequence:     1,
		QueueDate:    "2026-10-15",
		DepartmentID: "umum",
		Status:       status,
		TakenAt:      machineBase,
	}
	counter := 1
	called := machineBase.Add(time.Minute)
	started := machineBase.Add(2 * time.Minute)
	finished := machineBase.Add(3 * time.Minute)
	switch status {
	case models.StatusCalled:
		entry.CounterNumber, entry.CalledAt = &counter, &called
	case models.StatusInService:
		entry.CounterNumber, entry.CalledAt, entry.StartedAt = &counter, &called, &started
	case models.StatusCompleted:
		entry.CounterNumber, entry.CalledAt, entry.StartedAt, entry.FinishedAt = &counter, &called, &started, &finished
	}
	return entry
}

func TestApplyTransitionTable(t *testing.T) {
	legal := map[store.Action][]models.Status{
		store.ActionCall:          {models.StatusWaiting},
		store.ActionStart:         {models.StatusCalled},
		store.ActionComplete:      {models.StatusInService},
		store.ActionSkip:          {models.StatusWaiting},
		store.ActionCancel:        {models.StatusWaiting, models.StatusCalled, models.StatusInService},
		store.ActionAssignPatient: {models.StatusWaiting, models.StatusCalled, models.StatusInService},
		store.ActionRecall:        {models.StatusCalled},
	}
	now := machineBase.Add(10 * time.Minute)

	for _, action := range store.Actions {
		for _, status := range models.AllStatuses {
			t.Run(string(action)+"/"+string(status), func(t *testing.T) {
				entry := entryIn(status)
				next, _, err := Apply(entry, Command{Action: action, CounterNumber: 2, PatientID: "P-9"}, now)

				if !containsStatus(legal[action], status) {
					require.Error(t, err)
					assert.True(t, errors.Is(err, store.ErrInvalidTransition))
					var transitionErr *store.InvalidTransitionError
					require.True(t, errors.As(err, &transitionErr))
					assert.Equal(t, status, transitionErr.From)
					assert.Equal(t, action, transitionErr.Action)
					assert.Equal(t, entry, next)
					return
				}

				require.NoError(t, err)
				require.NoError(t, next.Validate())
				if target, ok := store.TargetStatus(action); ok {
					assert.Equal(t, target, next.Status)
				} else {
					assert.Equal(t, status, next.Status)
				}
			})
		}
	}
}

func TestApplySideEffects(t *testing.T) {
	now := machineBase.Add(10 * time.Minute)

	called, changed, err := Apply(entryIn(models.StatusWaiting), Command{Action: store.ActionCall, CounterNumber: 2, PatientID: " P-1 "}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, called.CounterNumber)
	assert.Equal(t, 2, *called.CounterNumber)
	require.NotNil(t, called.PatientID)
	assert.Equal(t, "P-1", *called.PatientID)
	assert.Equal(t, now, *called.CalledAt)

	skipped, _, err := Apply(entryIn(models.StatusWaiting), Command{Action: store.ActionSkip, Reason: "  tidak hadir "}, now)
	require.NoError(t, err)
	require.NotNil(t, skipped.Notes)
	assert.Equal(t, "tidak hadir", *skipped.Notes)

	cancelled, _, err := Apply(entryIn(models.StatusInService), Command{Action: store.ActionCancel, Reason: "   "}, now)
	require.NoError(t, err)
	assert.Nil(t, cancelled.Notes)
	assert.NotNil(t, cancelled.StartedAt)
	assert.Nil(t, cancelled.FinishedAt)
}

func TestApplyClampsBackwardsClock(t *testing.T) {
	entry := entryIn(models.StatusCalled)
	next, _, err := Apply(entry, Command{Action: store.ActionStart}, machineBase)
	require.NoError(t, err)
	require.NotNil(t, next.StartedAt)
	assert.Equal(t, *entry.CalledAt, *next.StartedAt)
	require.NoError(t, next.Validate())
}

func TestApplyAssignSamePatientIsNoop(t *testing.T) {
	entry := entryIn(models.StatusCalled)
	patient := "P-1"
	entry.PatientID = &patient

	next, changed, err := Apply(entry, Command{Action: store.ActionAssignPatient, PatientID: "P-1"}, machineBase.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, entry, next)

	next, changed, err = Apply(entry, Command{Action: store.ActionAssignPatient, PatientID: "P-2"}, machineBase.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "P-2", *next.PatientID)
	assert.Equal(t, entry.CalledAt, next.CalledAt)
}

func containsStatus(statuses []models.Status, status models.Status) bool {
	for _, item := range statuses {
		if item == status {
			return true
		}
	}
	return false
}
