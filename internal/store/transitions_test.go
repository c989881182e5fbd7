package store

import (
	"errors"
	"testing"

	"klinik/antrian/internal/models"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action Action
		from   models.Status
		valid  bool
	}{
		{ActionCall, models.StatusWaiting, true},
		{ActionCall, models.StatusCalled, false},
		{ActionStart, models.StatusCalled, true},
		{ActionStart, models.StatusWaiting, false},
		{ActionComplete, models.StatusInService, true},
		{ActionComplete, models.StatusCalled, false},
		{ActionSkip, models.StatusWaiting, true},
		{ActionSkip, models.StatusCalled, false},
		{ActionCancel, models.StatusWaiting, true},
		{ActionCancel, models.StatusInService, true},
		{ActionCancel, models.StatusCompleted, false},
		{ActionAssignPatient, models.StatusCalled, true},
		{ActionAssignPatient, models.StatusSkipped, false},
		{ActionRecall, models.StatusCalled, true},
		{ActionRecall, models.StatusInService, false},
		{Action("unknown"), models.StatusWaiting, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestTerminalStatesAllowNothing(t *testing.T) {
	for _, status := range models.AllStatuses {
		if !status.IsTerminal() {
			continue
		}
		for _, action := range Actions {
			if ValidTransition(action, status) {
				t.Fatalf("%s allowed from terminal state %s", action, status)
			}
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(ActionStart, models.StatusWaiting)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) || transitionErr.From != models.StatusWaiting {
		t.Fatalf("expected error carrying from=waiting, got %v", err)
	}
	if err.Error() != "invalid transition: cannot start a ticket in state waiting" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
