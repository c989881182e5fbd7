package queue

import (
	"strings"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store"
)

// Command is one operator action against an entry.
type Command struct {
	Action        store.Action
	CounterNumber int
	PatientID     string
	Reason        string
}

var eventTypes = map[store.Action]string{
	store.ActionCall:          models.EventTicketCalled,
	store.ActionStart:         models.EventTicketStarted,
	store.ActionComplete:      models.EventTicketCompleted,
	store.ActionSkip:          models.EventTicketSkipped,
	store.ActionCancel:        models.EventTicketCancelled,
	store.ActionAssignPatient: models.EventTicketPatientAssigned,
	store.ActionRecall:        models.EventTicketRecalled,
}

func EventType(action store.Action) string {
	return eventTypes[action]
}

// Apply computes the entry that results from cmd at now. It does not persist
// anything. changed is false when the command leaves the entry untouched,
// which is the case for recall and for assigning the patient already linked.
func Apply(entry models.QueueEntry, cmd Command, now time.Time) (next models.QueueEntry, changed bool, err error) {
	if err := store.CheckTransition(cmd.Action, entry.Status); err != nil {
		return entry, false, err
	}

	// timestamps never go backwards, even if the clock does
	if latest := entry.LatestTimestamp(); now.Before(latest) {
		now = latest
	}

	next = entry
	switch cmd.Action {
	case store.ActionCall:
		counter := cmd.CounterNumber
		next.CounterNumber = &counter
		next.CalledAt = timePtr(now)
		if patientID := strings.TrimSpace(cmd.PatientID); patientID != "" {
			next.PatientID = &patientID
		}
	case store.ActionStart:
		next.StartedAt = timePtr(now)
	case store.ActionComplete:
		next.FinishedAt = timePtr(now)
	case store.ActionSkip, store.ActionCancel:
		next.Notes = reasonPtr(cmd.Reason)
	case store.ActionAssignPatient:
		patientID := strings.TrimSpace(cmd.PatientID)
		if entry.PatientID != nil && *entry.PatientID == patientID {
			return entry, false, nil
		}
		next.PatientID = &patientID
		return next, true, nil
	case store.ActionRecall:
		return entry, false, nil
	}

	if status, ok := store.TargetStatus(cmd.Action); ok {
		next.Status = status
	}
	return next, true, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func reasonPtr(reason string) *string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil
	}
	return &reason
}
