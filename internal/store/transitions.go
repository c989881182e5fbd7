package store

import "klinik/antrian/internal/models"

type Action string

const (
	ActionCall          Action = "call"
	ActionStart         Action = "start"
	ActionComplete      Action = "complete"
	ActionSkip          Action = "skip"
	ActionCancel        Action = "cancel"
	ActionAssignPatient Action = "assign_patient"
	ActionRecall        Action = "recall"
)

// Actions lists every operator action in a stable order.
var Actions = []Action{
	ActionCall,
	ActionStart,
	ActionComplete,
	ActionSkip,
	ActionCancel,
	ActionAssignPatient,
	ActionRecall,
}

var transitionMap = map[Action][]models.Status{
	ActionCall:          {models.StatusWaiting},
	ActionStart:         {models.StatusCalled},
	ActionComplete:      {models.StatusInService},
	ActionSkip:          {models.StatusWaiting},
	ActionCancel:        {models.StatusWaiting, models.StatusCalled, models.StatusInService},
	ActionAssignPatient: {models.StatusWaiting, models.StatusCalled, models.StatusInService},
	ActionRecall:        {models.StatusCalled},
}

var targetStatus = map[Action]models.Status{
	ActionCall:     models.StatusCalled,
	ActionStart:    models.StatusInService,
	ActionComplete: models.StatusCompleted,
	ActionSkip:     models.StatusSkipped,
	ActionCancel:   models.StatusCancelled,
}

func ValidTransition(action Action, from models.Status) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}

// TargetStatus reports the status an action moves an entry into. Actions that
// leave the status untouched return false.
func TargetStatus(action Action) (models.Status, bool) {
	status, ok := targetStatus[action]
	return status, ok
}

// CheckTransition returns an *InvalidTransitionError when action is not legal from.
func CheckTransition(action Action, from models.Status) error {
	if ValidTransition(action, from) {
		return nil
	}
	return &InvalidTransitionError{From: from, Action: action}
}
