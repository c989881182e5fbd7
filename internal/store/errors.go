package store

import (
	"errors"
	"fmt"

	"klinik/antrian/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEntryNotFound      = fmt.Errorf("queue entry %w", ErrNotFound)
	ErrSettingNotFound    = fmt.Errorf("queue setting %w", ErrNotFound)
	ErrDepartmentInactive = errors.New("department queue is inactive")
	ErrQuotaExceeded      = errors.New("daily quota exceeded")
	ErrCodeCollision      = errors.New("queue code collision")
	ErrInvalidTransition  = errors.New("invalid transition")
)

// InvalidTransitionError names the state an entry was in and the action that
// was attempted against it.
type InvalidTransitionError struct {
	From   models.Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s a ticket in state %s", e.Action, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
