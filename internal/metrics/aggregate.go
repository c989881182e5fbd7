package metrics

import (
	"time"

	"klinik/antrian/internal/models"
)

// Aggregate counts entries per status and averages wait and service time.
// Entries missing the relevant timestamps are left out of an average rather
// than counted as zero; an average with no samples is 0.
func Aggregate(entries []models.QueueEntry) models.QueueStats {
	stats := models.QueueStats{
		Total:  len(entries),
		Counts: make(map[models.Status]int, len(models.AllStatuses)),
	}
	for _, status := range models.AllStatuses {
		stats.Counts[status] = 0
	}

	var wait, service mean
	for _, entry := range entries {
		stats.Counts[entry.Status]++
		if entry.CalledAt != nil {
			wait.add(entry.CalledAt.Sub(entry.TakenAt))
		}
		if entry.StartedAt != nil && entry.FinishedAt != nil {
			service.add(entry.FinishedAt.Sub(*entry.StartedAt))
		}
	}
	stats.AvgWaitSeconds = wait.seconds()
	stats.AvgServiceSeconds = service.seconds()
	return stats
}

type mean struct {
	total time.Duration
	count int
}

func (m *mean) add(d time.Duration) {
	m.total += d
	m.count++
}

func (m mean) seconds() float64 {
	if m.count == 0 {
		return 0
	}
	return m.total.Seconds() / float64(m.count)
}
