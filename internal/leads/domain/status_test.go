package domain

import "testing"

func TestCanTransitionLifecycle(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusReserved},
		{StatusPending, StatusAvailable},
		{StatusAvailable, StatusReserved},
		{StatusAvailable, StatusAbandoned},
		{StatusReserved, StatusAccepted},
		{StatusReserved, StatusRejected},
		{StatusReserved, StatusExpired},
		{StatusRejected, StatusReserved},
		{StatusRejected, StatusAvailable},
		{StatusExpired, StatusReserved},
		{StatusExpired, StatusAvailable},
		{StatusAccepted, StatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusPending, StatusAccepted},
		{StatusAvailable, StatusCompleted},
		{StatusReserved, StatusCompleted},
		{StatusAccepted, StatusReserved},
		{StatusCompleted, StatusReserved},
		{StatusAbandoned, StatusAvailable},
		{StatusRejected, StatusAccepted},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	all := []Status{
		StatusPending, StatusAvailable, StatusReserved, StatusAccepted,
		StatusRejected, StatusExpired, StatusCompleted, StatusAbandoned,
	}
	for _, terminal := range []Status{StatusCompleted, StatusAbandoned} {
		if !IsTerminal(terminal) {
			t.Fatalf("expected %s to be terminal", terminal)
		}
		for _, next := range all {
			if CanTransition(terminal, next) {
				t.Errorf("terminal status %s must not transition to %s", terminal, next)
			}
		}
	}
}

func TestTransientStatuses(t *testing.T) {
	if !IsTransient(StatusRejected) || !IsTransient(StatusExpired) {
		t.Fatal("REJECTED and EXPIRED must be transient")
	}
	if IsTransient(StatusReserved) || IsTransient(StatusAvailable) {
		t.Fatal("RESERVED and AVAILABLE must not be transient")
	}
}

func TestReservable(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAvailable, StatusRejected, StatusExpired} {
		if !Reservable(s) {
			t.Errorf("expected %s to be reservable", s)
		}
	}
	for _, s := range []Status{StatusReserved, StatusAccepted, StatusCompleted, StatusAbandoned} {
		if Reservable(s) {
			t.Errorf("expected %s to not be reservable", s)
		}
	}
}
