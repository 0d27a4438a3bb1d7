package workflows

import "fmt"

// Status is the lifecycle status of a transaction token.
type Status string

const (
	StatusPendingAuthentication Status = "pending_authentication"
	StatusAuthenticated         Status = "authenticated"
	StatusTransferredToFactory  Status = "transferred_to_factory"
	StatusVerified              Status = "verified"
	StatusPaymentApproved       Status = "payment_approved"
	StatusPaymentReleased       Status = "payment_released"
	StatusDisputed              Status = "disputed"
	StatusCancelled             Status = "cancelled"
)

// InvalidTransitionError reports a rejected status transition. The current
// status is carried so admins can diagnose stuck tokens from the message.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("current status is %q, cannot transition to %q", e.From, e.To)
}

// StateMachine enforces token status transitions
type StateMachine struct {
	allowedTransitions map[Status][]Status
}

// NewStateMachine creates a new state machine with the token lifecycle.
// disputed and cancelled are administrative side exits reachable from any
// non-terminal status, so they are appended to every non-terminal row.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		allowedTransitions: map[Status][]Status{
			StatusPendingAuthentication: {StatusAuthenticated},
			StatusAuthenticated:         {StatusTransferredToFactory},
			StatusTransferredToFactory:  {StatusVerified},
			StatusVerified:              {StatusPaymentApproved},
			StatusPaymentApproved:       {StatusPaymentReleased},
			StatusPaymentReleased:       {},
			StatusDisputed:              {},
			StatusCancelled:             {},
		},
	}
	for from := range sm.allowedTransitions {
		if !sm.IsTerminal(from) {
			sm.allowedTransitions[from] = append(sm.allowedTransitions[from], StatusDisputed, StatusCancelled)
		}
	}
	return sm
}

// IsTerminal reports whether no further transitions are possible from s.
func (sm *StateMachine) IsTerminal(s Status) bool {
	switch s {
	case StatusPaymentReleased, StatusDisputed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to Status) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Guard returns nil if the transition is allowed, or an
// *InvalidTransitionError describing the rejection.
func (sm *StateMachine) Guard(from, to Status) error {
	if !sm.CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// AllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) AllowedTransitions(from Status) []Status {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []Status{}
	}
	return allowed
}
