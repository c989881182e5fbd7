package models

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCalled    Status = "called"
	StatusInService Status = "in_service"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusWaiting,
	StatusCalled,
	StatusInService,
	StatusCompleted,
	StatusSkipped,
	StatusCancelled,
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	for _, status := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}

type QueueEntry struct {
	ID             string     `json:"id"`
	QueueCode      string     `json:"queue_code"`
	Sequence       int        `json:"sequence"`
	QueueDate      string     `json:"queue_date"`
	DepartmentID   string     `json:"department_id"`
	DepartmentName string     `json:"department_name,omitempty"`
	PatientID      *string    `json:"patient_id"`
	Status         Status     `json:"status"`
	CounterNumber  *int       `json:"counter_number"`
	TakenAt        time.Time  `json:"taken_at"`
	CalledAt       *time.Time `json:"called_at"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	Notes          *string    `json:"notes"`
}

// Validate checks that the timestamps present on the entry are exactly the
// ones its status implies and that they never go backwards.
func (e QueueEntry) Validate() error {
	if !e.Status.Valid() {
		return fmt.Errorf("entry %s: unknown status %q", e.ID, e.Status)
	}
	if e.TakenAt.IsZero() {
		return fmt.Errorf("entry %s: taken_at missing", e.ID)
	}

	wantCalled, wantStarted, wantFinished := false, false, false
	switch e.Status {
	case StatusCalled:
		wantCalled = true
	case StatusInService:
		wantCalled, wantStarted = true, true
	case StatusCompleted:
		wantCalled, wantStarted, wantFinished = true, true, true
	case StatusWaiting, StatusSkipped:
	case StatusCancelled:
		// a cancelled entry keeps whatever it reached before cancellation
		wantCalled = e.CalledAt != nil
		wantStarted = e.StartedAt != nil
		if wantStarted && !wantCalled {
			return fmt.Errorf("entry %s: started_at without called_at", e.ID)
		}
	}
	if (e.CalledAt != nil) != wantCalled {
		return fmt.Errorf("entry %s: called_at inconsistent with status %s", e.ID, e.Status)
	}
	if (e.StartedAt != nil) != wantStarted {
		return fmt.Errorf("entry %s: started_at inconsistent with status %s", e.ID, e.Status)
	}
	if (e.FinishedAt != nil) != wantFinished {
		return fmt.Errorf("entry %s: finished_at inconsistent with status %s", e.ID, e.Status)
	}
	if wantCalled && e.CounterNumber == nil {
		return fmt.Errorf("entry %s: counter_number missing", e.ID)
	}

	last := e.TakenAt
	for _, ts := range []*time.Time{e.CalledAt, e.StartedAt, e.FinishedAt} {
		if ts == nil {
			continue
		}
		if ts.Before(last) {
			return fmt.Errorf("entry %s: timestamps out of order", e.ID)
		}
		last = *ts
	}
	return nil
}

// LatestTimestamp returns the newest lifecycle timestamp recorded on the entry.
func (e QueueEntry) LatestTimestamp() time.Time {
	latest := e.TakenAt
	for _, ts := range []*time.Time{e.CalledAt, e.StartedAt, e.FinishedAt} {
		if ts != nil && ts.After(latest) {
			latest = *ts
		}
	}
	return latest
}

type TodayQueues struct {
	Date      string       `json:"date"`
	Waiting   []QueueEntry `json:"waiting"`
	Called    []QueueEntry `json:"called"`
	InService []QueueEntry `json:"in_service"`
	Completed []QueueEntry `json:"completed"`
	Skipped   []QueueEntry `json:"skipped"`
	Cancelled []QueueEntry `json:"cancelled"`
}

type RecallNotice struct {
	Seq        int64      `json:"seq"`
	Entry      QueueEntry `json:"entry"`
	RecalledAt time.Time  `json:"recalled_at"`
}

type QueueDisplaySnapshot struct {
	Date        string         `json:"date"`
	Current     []QueueEntry   `json:"current"`
	Waiting     []QueueEntry   `json:"waiting"`
	Recalls     []RecallNotice `json:"recalls"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type QueueStats struct {
	Date              string         `json:"date"`
	DepartmentID      string         `json:"department_id,omitempty"`
	Total             int            `json:"total"`
	Counts            map[Status]int `json:"counts"`
	AvgWaitSeconds    float64        `json:"avg_wait_seconds"`
	AvgServiceSeconds float64        `json:"avg_service_seconds"`
}
