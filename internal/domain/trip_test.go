package domain

import "testing"

func TestTripStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	allowed := map[TripStatus][]TripStatus{
		TripStatusRequested:     {TripStatusDriverPending, TripStatusCanceled},
		TripStatusDriverPending: {TripStatusOnTheWay, TripStatusCanceled},
		TripStatusOnTheWay:      {TripStatusStarted, TripStatusCanceled},
		TripStatusStarted:       {TripStatusFinished},
		TripStatusFinished:      {},
		TripStatusCanceled:      {},
	}

	all := []TripStatus{
		TripStatusRequested, TripStatusDriverPending, TripStatusOnTheWay,
		TripStatusStarted, TripStatusFinished, TripStatusCanceled,
	}

	for from, nexts := range allowed {
		ok := map[TripStatus]bool{}
		for _, n := range nexts {
			ok[n] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != ok[to] {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, ok[to])
			}
		}
	}
}

func TestTripStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[TripStatus]bool{
		TripStatusRequested:     false,
		TripStatusDriverPending: false,
		TripStatusOnTheWay:      false,
		TripStatusStarted:       false,
		TripStatusFinished:      true,
		TripStatusCanceled:      true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestTrip_Assigned(t *testing.T) {
	t.Parallel()

	trip := &Trip{Status: TripStatusDriverPending}
	if trip.Assigned() {
		t.Error("trip without a driver reported as assigned")
	}
	trip.DriverChatID = 9001
	if !trip.Assigned() {
		t.Error("trip with a driver reported as unassigned")
	}
}
