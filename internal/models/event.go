package models

import (
	"encoding/json"
	"time"
)

// Event types emitted for every queue mutation and for recalls.
const (
	EventTicketTaken           = "ticket.taken"
	EventTicketCalled          = "ticket.called"
	EventTicketStarted         = "ticket.started"
	EventTicketCompleted       = "ticket.completed"
	EventTicketSkipped         = "ticket.skipped"
	EventTicketCancelled       = "ticket.cancelled"
	EventTicketPatientAssigned = "ticket.patient_assigned"
	EventTicketRecalled        = "ticket.recalled"
)

type QueueEvent struct {
	EntryID   string          `json:"entry_id"`
	Seq       int             `json:"seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
}
