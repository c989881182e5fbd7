package store

import (
	"context"
	"time"

	"klinik/antrian/internal/models"
)

// AllocateFunc decides the next ticket for a department given its setting and
// the highest sequence already issued on the day (0 when none).
type AllocateFunc func(setting models.QueueSetting, lastIssued int) (sequence int, code string, err error)

type TakeTicketInput struct {
	EntryID      string
	DepartmentID string
	QueueDate    string
	TakenAt      time.Time
}

type UpdateEntryInput struct {
	Entry     models.QueueEntry
	Expected  models.Status
	Action    Action
	EventType string
}

type EntryFilter struct {
	DepartmentID string
	Date         string
	Statuses     []models.Status
}

// QueueStore persists settings and entries. It performs no business
// validation beyond compare-and-set on entry status.
type QueueStore interface {
	GetSetting(ctx context.Context, departmentID string) (models.QueueSetting, error)
	ListSettings(ctx context.Context) ([]models.QueueSetting, error)
	UpsertSetting(ctx context.Context, setting models.QueueSetting) (models.QueueSetting, error)
	TakeTicket(ctx context.Context, input TakeTicketInput, allocate AllocateFunc) (models.QueueEntry, error)
	GetEntry(ctx context.Context, id string) (models.QueueEntry, error)
	UpdateEntry(ctx context.Context, input UpdateEntryInput) (models.QueueEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]models.QueueEntry, error)
	ListEvents(ctx context.Context, entryID string) ([]models.QueueEvent, error)
}
