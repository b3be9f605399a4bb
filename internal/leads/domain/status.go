// Package domain provides core business rules for the leads bounded context:
// the lead state machine and the distribution policies.
package domain

// Status is a lead lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAvailable Status = "AVAILABLE"
	StatusReserved  Status = "RESERVED"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
	StatusCompleted Status = "COMPLETED"
	StatusAbandoned Status = "ABANDONED"
)

// transitions is the full state machine. REJECTED and EXPIRED are transient:
// the service immediately re-invokes distribution, so they can only move to
// RESERVED or AVAILABLE.
var transitions = map[Status][]Status{
	StatusPending:   {StatusReserved, StatusAvailable},
	StatusAvailable: {StatusReserved, StatusAbandoned},
	StatusReserved:  {StatusAccepted, StatusRejected, StatusExpired},
	StatusRejected:  {StatusReserved, StatusAvailable},
	StatusExpired:   {StatusReserved, StatusAvailable},
	StatusAccepted:  {StatusCompleted},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the lead's lifecycle.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusAbandoned
}

// IsTransient reports whether the status must immediately re-enter
// distribution and never be observed as a steady state.
func IsTransient(status Status) bool {
	return status == StatusRejected || status == StatusExpired
}

// Reservable reports whether a reservation may be granted from this status.
func Reservable(status Status) bool {
	return CanTransition(status, StatusReserved)
}
