package metrics

import (
	"testing"
	"time"

	"klinik/antrian/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.AvgWaitSeconds)
	assert.Zero(t, stats.AvgServiceSeconds)
	for _, status := range models.AllStatuses {
		assert.Equal(t, 0, stats.Counts[status])
	}
}

func TestAggregateAverages(t *testing.T) {
	base := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	at := func(seconds int) *time.Time {
		ts := base.Add(time.Duration(seconds) * time.Second)
		return &ts
	}
	entries := []models.QueueEntry{
		{Status: models.StatusCompleted, TakenAt: base, CalledAt: at(10), StartedAt: at(10), FinishedAt: at(70)},
		{Status: models.StatusInService, TakenAt: base, CalledAt: at(20), StartedAt: at(25)},
		{Status: models.StatusCalled, TakenAt: base, CalledAt: at(30)},
		{Status: models.StatusWaiting, TakenAt: base},
		{Status: models.StatusSkipped, TakenAt: base},
	}

	stats := Aggregate(entries)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Counts[models.StatusCompleted])
	assert.Equal(t, 1, stats.Counts[models.StatusWaiting])
	assert.Equal(t, 0, stats.Counts[models.StatusCancelled])
	assert.InDelta(t, 20.0, stats.AvgWaitSeconds, 1e-9)
	assert.InDelta(t, 60.0, stats.AvgServiceSeconds, 1e-9)
}

func TestAggregateNoServiceSamples(t *testing.T) {
	base := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	called := base.Add(45 * time.Second)
	stats := Aggregate([]models.QueueEntry{
		{Status: models.StatusCalled, TakenAt: base, CalledAt: &called},
	})
	assert.InDelta(t, 45.0, stats.AvgWaitSeconds, 1e-9)
	assert.Zero(t, stats.AvgServiceSeconds)
}
