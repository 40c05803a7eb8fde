package appointment

import (
	"fmt"
	"strings"
	"time"
)

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionNoShow   Action = "no_show"
)

// TransitionInput carries the side data a transition may record.
type TransitionInput struct {
	Reason      string // cancel only
	CancelledBy string // cancel only
	Summary     string // complete only
}

// Transition returns the status reached by applying action to from.
func Transition(from Status, action Action) (Status, error) {
	switch from {
	case StatusPending:
		switch action {
		case ActionConfirm:
			return StatusConfirmed, nil
		case ActionCancel:
			return StatusCancelled, nil
		case ActionComplete, ActionNoShow:
			return "", invalidTransition(from, action)
		}
	case StatusConfirmed:
		switch action {
		case ActionCancel:
			return StatusCancelled, nil
		case ActionComplete:
			return StatusCompleted, nil
		case ActionNoShow:
			return StatusNoShow, nil
		case ActionConfirm:
			return "", invalidTransition(from, action)
		}
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return "", invalidTransition(from, action)
	}
	return "", invalidTransition(from, action)
}

func invalidTransition(from Status, action Action) error {
	return ErrInvalidTransition.WithDetails(map[string]string{
		"from":   string(from),
		"action": string(action),
	})
}

// Apply moves a to its next status and stamps the transition's side effects. a is left
// untouched on error.
func Apply(a *Appointment, action Action, in TransitionInput, now time.Time) error {
	to, err := Transition(a.Status, action)
	if err != nil {
		return err
	}

	switch action {
	case ActionConfirm:
		a.ConfirmedAt = &now
	case ActionCancel:
		reason := strings.TrimSpace(in.Reason)
		by := strings.TrimSpace(in.CancelledBy)
		if by == "" {
			by = "therapist"
		}
		a.CancellationReason = &reason
		a.CancelledBy = &by
		a.CancelledAt = &now
	case ActionComplete:
		if s := strings.TrimSpace(in.Summary); s != "" {
			a.Summary = s
		}
		a.CompletedAt = &now
	case ActionNoShow:
		a.NoShowAt = &now
	default:
		return fmt.Errorf("unhandled action %q", action)
	}

	a.Status = to
	a.UpdatedAt = now
	return nil
}
