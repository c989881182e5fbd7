package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"klinik/antrian/internal/logging"
	"klinik/antrian/internal/metrics"
	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// ErrInvalidInput marks caller mistakes such as a missing department or a
// non-positive counter number.
var ErrInvalidInput = errors.New("invalid input")

// Listener is notified after every successful queue mutation and recall.
// Listeners run synchronously on the caller's goroutine and must not block.
type Listener func(ctx context.Context, eventType string, entry models.QueueEntry)

type Options struct {
	Location      *time.Location
	Now           func() time.Time
	RecallLogSize int
	// Meter receives the queue counters. Nil uses the global meter provider.
	Meter         metric.Meter
}

// Service is the single entry point for operator actions. It combines the
// allocator, the state machine and the store, and fans out events.
type Service struct {
	store    store.QueueStore
	loc      *time.Location
	now      func() time.Time
	recalls  *recallLog
	counters instruments

	mu        sync.RWMutex
	listeners []Listener
}

func NewService(queueStore store.QueueStore, options Options) *Service {
	loc := options.Location
	if loc == nil {
		loc = time.UTC
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    queueStore,
		loc:      loc,
		now:      now,
		recalls:  newRecallLog(options.RecallLogSize),
		counters: newInstruments(options.Meter),
	}
}

func (s *Service) Subscribe(listener Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Today is the current queue date in the service time zone.
func (s *Service) Today() string {
	return DayOf(s.now(), s.loc)
}

func (s *Service) TakeTicket(ctx context.Context, departmentID string) (models.QueueEntry, error) {
	departmentID = strings.TrimSpace(departmentID)
	if departmentID == "" {
		return models.QueueEntry{}, fmt.Errorf("%w: department_id is required", ErrInvalidInput)
	}
	now := s.clock()
	entry, err := s.store.TakeTicket(ctx, store.TakeTicketInput{
		EntryID:      uuid.NewString(),
		DepartmentID: departmentID,
		QueueDate:    DayOf(now, s.loc),
		TakenAt:      now,
	}, Allocate)
	if err != nil {
		if errors.Is(err, store.ErrCodeCollision) {
			logging.FromContext(ctx).Error().Err(err).Str("department_id", departmentID).Msg("ticket code collision")
		}
		return models.QueueEntry{}, err
	}
	s.counters.recordTaken(ctx, departmentID)
	s.emit(ctx, models.EventTicketTaken, entry)
	return entry, nil
}

func (s *Service) Call(ctx context.Context, id string, counterNumber int, patientID string) (models.QueueEntry, error) {
	if counterNumber < 1 {
		return models.QueueEntry{}, fmt.Errorf("%w: counter_number must be positive", ErrInvalidInput)
	}
	return s.transition(ctx, id, Command{Action: store.ActionCall, CounterNumber: counterNumber, PatientID: patientID})
}

func (s *Service) Start(ctx context.Context, id string) (models.QueueEntry, error) {
	return s.transition(ctx, id, Command{Action: store.ActionStart})
}

func (s *Service) Complete(ctx context.Context, id string) (models.QueueEntry, error) {
	return s.transition(ctx, id, Command{Action: store.ActionComplete})
}

func (s *Service) Skip(ctx context.Context, id, reason string) (models.QueueEntry, error) {
	return s.transition(ctx, id, Command{Action: store.ActionSkip, Reason: reason})
}

func (s *Service) Cancel(ctx context.Context, id, reason string) (models.QueueEntry, error) {
	return s.transition(ctx, id, Command{Action: store.ActionCancel, Reason: reason})
}

func (s *Service) AssignPatient(ctx context.Context, id, patientID string) (models.QueueEntry, error) {
	if strings.TrimSpace(patientID) == "" {
		return models.QueueEntry{}, fmt.Errorf("%w: patient_id is required", ErrInvalidInput)
	}
	return s.transition(ctx, id, Command{Action: store.ActionAssignPatient, PatientID: patientID})
}

// Recall re-announces a called entry. Nothing is written to the store; the
// recall lands in the recall log shown on the display snapshot.
func (s *Service) Recall(ctx context.Context, id string) (models.QueueEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if err := store.CheckTransition(store.ActionRecall, entry.Status); err != nil {
		return models.QueueEntry{}, err
	}
	s.recalls.add(entry, s.clock())
	s.counters.recordTransition(ctx, entry.DepartmentID, models.EventTicketRecalled)
	s.emit(ctx, models.EventTicketRecalled, entry)
	return entry, nil
}

func (s *Service) transition(ctx context.Context, id string, cmd Command) (models.QueueEntry, error) {
	current, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return models.QueueEntry{}, err
	}
	next, changed, err := Apply(current, cmd, s.clock())
	if err != nil {
		return models.QueueEntry{}, err
	}
	if !changed {
		return current, nil
	}
	if err := next.Validate(); err != nil {
		return models.QueueEntry{}, fmt.Errorf("%s %s: %w", cmd.Action, id, err)
	}

	eventType := EventType(cmd.Action)
	updated, err := s.store.UpdateEntry(ctx, store.UpdateEntryInput{
		Entry:     next,
		Expected:  current.Status,
		Action:    cmd.Action,
		EventType: eventType,
	})
	if err != nil {
		return models.QueueEntry{}, err
	}
	s.counters.recordTransition(ctx, updated.DepartmentID, eventType)
	s.emit(ctx, eventType, updated)
	return updated, nil
}

func (s *Service) GetEntry(ctx context.Context, id string) (models.QueueEntry, error) {
	return s.store.GetEntry(ctx, id)
}

func (s *Service) Events(ctx context.Context, id string) ([]models.QueueEvent, error) {
	return s.store.ListEvents(ctx, id)
}

// TodayQueues partitions today's entries for a department (all departments
// when departmentID is empty).
func (s *Service) TodayQueues(ctx context.Context, departmentID string) (models.TodayQueues, error) {
	date := s.Today()
	entries, err := s.store.ListEntries(ctx, store.EntryFilter{
		DepartmentID: strings.TrimSpace(departmentID),
		Date:         date,
	})
	if err != nil {
		return models.TodayQueues{}, err
	}
	return store.Partition(date, entries), nil
}

// Display builds the public snapshot: entries being served, most recently
// called first, then the waiting line in FIFO order.
func (s *Service) Display(ctx context.Context, departmentID string) (models.QueueDisplaySnapshot, error) {
	departmentID = strings.TrimSpace(departmentID)
	date := s.Today()
	entries, err := s.store.ListEntries(ctx, store.EntryFilter{
		DepartmentID: departmentID,
		Date:         date,
		Statuses:     []models.Status{models.StatusWaiting, models.StatusCalled, models.StatusInService},
	})
	if err != nil {
		return models.QueueDisplaySnapshot{}, err
	}
	queues := store.Partition(date, entries)

	current := make([]models.QueueEntry, 0, len(queues.Called)+len(queues.InService))
	current = append(current, queues.Called...)
	current = append(current, queues.InService...)
	store.SortByCalled(current)
	reverse(current)

	return models.QueueDisplaySnapshot{
		Date:        date,
		Current:     current,
		Waiting:     queues.Waiting,
		Recalls:     s.recalls.list(departmentID, date),
		GeneratedAt: s.clock(),
	}, nil
}

// Stats aggregates a day's entries. An empty date means today.
func (s *Service) Stats(ctx context.Context, departmentID, date string) (models.QueueStats, error) {
	departmentID = strings.TrimSpace(departmentID)
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.Today()
	}
	if !validDate(date) {
		return models.QueueStats{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	entries, err := s.store.ListEntries(ctx, store.EntryFilter{DepartmentID: departmentID, Date: date})
	if err != nil {
		return models.QueueStats{}, err
	}
	stats := metrics.Aggregate(entries)
	stats.Date = date
	stats.DepartmentID = departmentID
	return stats, nil
}

func (s *Service) ListSettings(ctx context.Context) ([]models.QueueSetting, error) {
	return s.store.ListSettings(ctx)
}

func (s *Service) GetSetting(ctx context.Context, departmentID string) (models.QueueSetting, error) {
	return s.store.GetSetting(ctx, strings.TrimSpace(departmentID))
}

func (s *Service) PutSetting(ctx context.Context, setting models.QueueSetting) (models.QueueSetting, error) {
	setting.DepartmentID = strings.TrimSpace(setting.DepartmentID)
	setting.DepartmentName = strings.TrimSpace(setting.DepartmentName)
	setting.Prefix = strings.ToUpper(strings.TrimSpace(setting.Prefix))
	if err := setting.Validate(); err != nil {
		return models.QueueSetting{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return s.store.UpsertSetting(ctx, setting)
}

// clock is truncated to microseconds so stored values compare equal after a
// database round trip.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) emit(ctx context.Context, eventType string, entry models.QueueEntry) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(ctx, eventType, entry)
	}
}

func reverse(entries []models.QueueEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
