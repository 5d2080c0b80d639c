// README: Booking aggregate and status definitions.
package booking

import (
	"fmt"
	"time"

	"metrosync/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	// StatusNoShow is reserved for a rider who never boarded. No transition
	// reaches it yet; the mobile clients already render it.
	StatusNoShow Status = "no_show"
)

type Booking struct {
	ID              types.ID
	Reference       string
	RiderID         types.ID
	DriverID        types.ID
	RouteID         types.ID
	StopID          *types.ID
	Pickup          types.Point
	Dropoff         types.Point
	Passengers      int
	Instructions    string
	DistanceKm      float64
	Fare            types.Money
	Status          Status
	ScheduledAt     time.Time
	EstimatedArrive time.Time
	CreatedAt       time.Time
	ConfirmedAt     *time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	CancelledBy     *types.ID
	CancelReason    *string
	DriverRating    *int
	RiderRating     *int
	DriverFeedback  *string
	RiderFeedback   *string
}

// AllowedTransitions represents the booking state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Action is a lifecycle move requested by a caller.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var actionTargets = map[Action]Status{
	ActionConfirm:  StatusConfirmed,
	ActionStart:    StatusInProgress,
	ActionComplete: StatusCompleted,
	ActionCancel:   StatusCancelled,
}

// Decide resolves an action against the current status. Pure; the store's
// compare-and-set re-checks the same precondition under its own
// serialization.
func Decide(current Status, action Action) (Status, error) {
	target, ok := actionTargets[action]
	if !ok {
		return StatusNone, fmt.Errorf("%w: unknown action %q", ErrInvalidState, action)
	}
	if !CanTransition(current, target) {
		return StatusNone, fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidState, action, current)
	}
	return target, nil
}

// Open reports whether the booking still occupies seats on its route.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}
