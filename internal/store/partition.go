package store

import (
	"sort"
	"time"

	"klinik/antrian/internal/models"
)

// Partition groups entries by status. Waiting keeps ticket-taken order,
// called and in_service keep call order, the rest keep taken order.
func Partition(date string, entries []models.QueueEntry) models.TodayQueues {
	queues := models.TodayQueues{
		Date:      date,
		Waiting:   []models.QueueEntry{},
		Called:    []models.QueueEntry{},
		InService: []models.QueueEntry{},
		Completed: []models.QueueEntry{},
		Skipped:   []models.QueueEntry{},
		Cancelled: []models.QueueEntry{},
	}
	ordered := make([]models.QueueEntry, len(entries))
	copy(ordered, entries)
	SortByTaken(ordered)

	for _, entry := range ordered {
		switch entry.Status {
		case models.StatusWaiting:
			queues.Waiting = append(queues.Waiting, entry)
		case models.StatusCalled:
			queues.Called = append(queues.Called, entry)
		case models.StatusInService:
			queues.InService = append(queues.InService, entry)
		case models.StatusCompleted:
			queues.Completed = append(queues.Completed, entry)
		case models.StatusSkipped:
			queues.Skipped = append(queues.Skipped, entry)
		case models.StatusCancelled:
			queues.Cancelled = append(queues.Cancelled, entry)
		}
	}
	SortByCalled(queues.Called)
	SortByCalled(queues.InService)
	return queues
}

func SortByTaken(entries []models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].TakenAt.Equal(entries[j].TakenAt) {
			return entries[i].TakenAt.Before(entries[j].TakenAt)
		}
		return entries[i].Sequence < entries[j].Sequence
	})
}

func SortByCalled(entries []models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return calledAt(entries[i]).Before(calledAt(entries[j]))
	})
}

func calledAt(entry models.QueueEntry) time.Time {
	if entry.CalledAt == nil {
		return entry.TakenAt
	}
	return *entry.CalledAt
}
