package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"
)

// Store keeps everything in process memory. It is used when no database is
// configured and as the reference store in tests.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	settings map[string]models.QueueSetting
	entries  map[string]models.QueueEntry
	order    []string
	codes    map[string]struct{}
	events   map[string][]models.QueueEvent
}

func NewStore() *Store {
	return &Store{
		now:      time.Now,
		settings: make(map[string]models.QueueSetting),
		entries:  make(map[string]models.QueueEntry),
		codes:    make(map[string]struct{}),
		events:   make(map[string][]models.QueueEvent),
	}
}

func (s *Store) GetSetting(ctx context.Context, departmentID string) (models.QueueSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[departmentID]
	if !ok {
		return models.QueueSetting{}, store.ErrSettingNotFound
	}
	return setting, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]models.QueueSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := make([]models.QueueSetting, 0, len(s.settings))
	for _, setting := range s.settings {
		settings = append(settings, setting)
	}
	sort.Slice(settings, func(i, j int) bool {
		return settings[i].DepartmentID < settings[j].DepartmentID
	})
	return settings, nil
}

func (s *Store) UpsertSetting(ctx context.Context, setting models.QueueSetting) (models.QueueSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting.UpdatedAt = s.now().UTC()
	s.settings[setting.DepartmentID] = setting
	return setting, nil
}

func (s *Store) TakeTicket(ctx context.Context, input store.TakeTicketInput, allocate store.AllocateFunc) (models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	setting, ok := s.settings[input.DepartmentID]
	if !ok {
		return models.QueueEntry{}, store.ErrSettingNotFound
	}

	last := 0
	for _, id := range s.order {
		entry := s.entries[id]
		if entry.DepartmentID == input.DepartmentID && entry.QueueDate == input.QueueDate && entry.Sequence > last {
			last = entry.Sequence
		}
	}

	seq, code, err := allocate(setting, last)
	if err != nil {
		return models.QueueEntry{}, err
	}
	key := codeKey(input.DepartmentID, input.QueueDate, code)
	if _, exists := s.codes[key]; exists {
		return models.QueueEntry{}, fmt.Errorf("%w: %s on %s", store.ErrCodeCollision, code, input.QueueDate)
	}

	entry := models.QueueEntry{
		ID:             input.EntryID,
		QueueCode:      code,
		Sequence:       seq,
		QueueDate:      input.QueueDate,
		DepartmentID:   input.DepartmentID,
		DepartmentName: setting.DepartmentName,
		Status:         models.StatusWaiting,
		TakenAt:        input.TakenAt,
	}
	if err := s.appendEvent(entry, models.EventTicketTaken); err != nil {
		return models.QueueEntry{}, err
	}
	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)
	s.codes[key] = struct{}{}
	return cloneEntry(entry), nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return models.QueueEntry{}, store.ErrEntryNotFound
	}
	return cloneEntry(entry), nil
}

func (s *Store) UpdateEntry(ctx context.Context, input store.UpdateEntryInput) (models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[input.Entry.ID]
	if !ok {
		return models.QueueEntry{}, store.ErrEntryNotFound
	}
	if current.Status != input.Expected {
		return models.QueueEntry{}, &store.InvalidTransitionError{From: current.Status, Action: input.Action}
	}

	next := cloneEntry(input.Entry)
	next.QueueCode = current.QueueCode
	next.Sequence = current.Sequence
	next.QueueDate = current.QueueDate
	next.DepartmentID = current.DepartmentID
	next.TakenAt = current.TakenAt
	if err := s.appendEvent(next, input.EventType); err != nil {
		return models.QueueEntry{}, err
	}
	s.entries[next.ID] = next
	return cloneEntry(next), nil
}

func (s *Store) ListEntries(ctx context.Context, filter store.EntryFilter) ([]models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := []models.QueueEntry{}
	for _, id := range s.order {
		entry := s.entries[id]
		if filter.DepartmentID != "" && entry.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Date != "" && entry.QueueDate != filter.Date {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, entry.Status) {
			continue
		}
		entries = append(entries, cloneEntry(entry))
	}
	store.SortByTaken(entries)
	return entries, nil
}

func (s *Store) ListEvents(ctx context.Context, entryID string) ([]models.QueueEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID]; !ok {
		return nil, store.ErrEntryNotFound
	}
	events := make([]models.QueueEvent, len(s.events[entryID]))
	copy(events, s.events[entryID])
	return events, nil
}

func (s *Store) appendEvent(entry models.QueueEntry, eventType string) error {
	chain := s.events[entry.ID]
	var prev *models.QueueEvent
	if len(chain) > 0 {
		prev = &chain[len(chain)-1]
	}
	event, err := store.NextEvent(prev, entry, eventType, s.now())
	if err != nil {
		return err
	}
	s.events[entry.ID] = append(chain, event)
	return nil
}

func codeKey(departmentID, date, code string) string {
	return departmentID + "|" + date + "|" + code
}

func hasStatus(statuses []models.Status, status models.Status) bool {
	for _, item := range statuses {
		if item == status {
			return true
		}
	}
	return false
}

func cloneEntry(entry models.QueueEntry) models.QueueEntry {
	out := entry
	out.PatientID = clonePtr(entry.PatientID)
	out.CounterNumber = clonePtr(entry.CounterNumber)
	out.CalledAt = clonePtr(entry.CalledAt)
	out.StartedAt = clonePtr(entry.StartedAt)
	out.FinishedAt = clonePtr(entry.FinishedAt)
	out.Notes = clonePtr(entry.Notes)
	return out
}

func clonePtr[T any](value *T) *T {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
