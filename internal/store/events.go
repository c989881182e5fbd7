package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"klinik/antrian/internal/models"
)

type eventPayload struct {
	ID            string        `json:"id"`
	QueueCode     string        `json:"queue_code"`
	DepartmentID  string        `json:"department_id"`
	Status        models.Status `json:"status"`
	PatientID     *string       `json:"patient_id,omitempty"`
	CounterNumber *int          `json:"counter_number,omitempty"`
	TakenAt       time.Time     `json:"taken_at"`
	CalledAt      *time.Time    `json:"called_at,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
}

func EventPayload(entry models.QueueEntry) (json.RawMessage, error) {
	return json.Marshal(eventPayload{
		ID:            entry.ID,
		QueueCode:     entry.QueueCode,
		DepartmentID:  entry.DepartmentID,
		Status:        entry.Status,
		PatientID:     entry.PatientID,
		CounterNumber: entry.CounterNumber,
		TakenAt:       entry.TakenAt,
		CalledAt:      entry.CalledAt,
		StartedAt:     entry.StartedAt,
		FinishedAt:    entry.FinishedAt,
		Notes:         entry.Notes,
	})
}

func ComputeEventHash(prevHash, entryID, eventType string, payload json.RawMessage, createdAt time.Time, seq int) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%s", prevHash, entryID, eventType, createdAt.UTC().Format(time.RFC3339Nano), seq, payload)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// NextEvent builds the event that follows prev (nil for the first one) in an
// entry's audit chain.
func NextEvent(prev *models.QueueEvent, entry models.QueueEntry, eventType string, createdAt time.Time) (models.QueueEvent, error) {
	payload, err := EventPayload(entry)
	if err != nil {
		return models.QueueEvent{}, err
	}
	// postgres keeps microseconds; the hash must survive a round trip
	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	seq := 1
	prevHash := ""
	if prev != nil {
		seq = prev.Seq + 1
		prevHash = prev.Hash
	}
	return models.QueueEvent{
		EntryID:   entry.ID,
		Seq:       seq,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: createdAt,
		PrevHash:  prevHash,
		Hash:      ComputeEventHash(prevHash, entry.ID, eventType, payload, createdAt, seq),
	}, nil
}

func VerifyChain(events []models.QueueEvent) error {
	prevHash := ""
	for i, event := range events {
		if event.Seq != i+1 {
			return fmt.Errorf("event %d: unexpected seq %d", i, event.Seq)
		}
		if event.PrevHash != prevHash {
			return fmt.Errorf("event %d: prev_hash mismatch", event.Seq)
		}
		want := ComputeEventHash(prevHash, event.EntryID, event.Type, event.Payload, event.CreatedAt, event.Seq)
		if want != event.Hash {
			return fmt.Errorf("event %d: hash mismatch", event.Seq)
		}
		prevHash = event.Hash
	}
	return nil
}
