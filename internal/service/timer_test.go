package service

import (
	"errors"
	"testing"
	"time"

	"query_clash_backend/internal/util"
)

func TestElapsed(t *testing.T) {
	start := util.FormatTimestamp(testNow.Add(-90 * time.Second))

	got, err := Elapsed(testNow, start, 0)
	if err != nil || got != 90 {
		t.Fatalf("Elapsed = %d, %v; want 90", got, err)
	}

	// persisted value is a floor
	got, _ = Elapsed(testNow, start, 500)
	if got != 500 {
		t.Fatalf("Elapsed with larger persisted = %d, want 500", got)
	}

	// clock moved backwards past the start
	got, _ = Elapsed(testNow.Add(-time.Hour), start, 42)
	if got != 42 {
		t.Fatalf("Elapsed before start = %d, want 42", got)
	}
}

func TestElapsedFallback(t *testing.T) {
	for _, start := range []string{"", "yesterday", "0001-01-01 00:00:00"} {
		got, err := Elapsed(testNow, start, 120)
		if !errors.Is(err, util.ErrMalformedTimestamp) {
			t.Fatalf("start %q: expected ErrMalformedTimestamp, got %v", start, err)
		}
		if got != 120 {
			t.Fatalf("start %q: fallback = %d, want 120", start, got)
		}
	}
}

func TestElapsedForeignLayouts(t *testing.T) {
	for _, start := range []string{
		"2026-03-14T11:59:00Z",
		"2026-03-14 11:59:00+00:00",
		"2026-03-14 11:59:00",
		"2026-03-14 11:59:00.000000",
		"2026-03-14T13:59:00+02:00",
	} {
		got, err := Elapsed(testNow, start, 0)
		if err != nil {
			t.Fatalf("start %q: %v", start, err)
		}
		if got != 60 {
			t.Fatalf("start %q: elapsed = %d, want 60", start, got)
		}
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	start := util.FormatTimestamp(testNow.Add(-4000 * time.Second))
	if got := Remaining(testNow, start, 0, time.Hour); got != 0 {
		t.Fatalf("Remaining = %d, want 0", got)
	}
	start = util.FormatTimestamp(testNow.Add(-600 * time.Second))
	if got := Remaining(testNow, start, 0, time.Hour); got != 3000 {
		t.Fatalf("Remaining = %d, want 3000", got)
	}
}

func TestTimerState(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow.Add(-100*time.Second))

	timer := NewTimerService(f.participants, time.Hour)
	timer.Now = fixedClock(testNow)

	state, err := timer.State(t.Context(), "alice")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Round != 1 || state.RemainingTime != 3500 {
		t.Fatalf("unexpected state %+v", state)
	}
	if p := f.participant(t, "alice"); p.ElapsedTime != 100 {
		t.Fatalf("persisted elapsed = %d, want 100", p.ElapsedTime)
	}

	// A clock that jumps back must not give time back.
	timer.Now = fixedClock(testNow.Add(-50 * time.Second))
	state, err = timer.State(t.Context(), "alice")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.RemainingTime != 3500 {
		t.Fatalf("remaining after clock skew = %d, want 3500", state.RemainingTime)
	}

}

func TestTimerLimitChanges(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow.Add(-100*time.Second))
	timer := NewTimerService(f.participants, time.Hour)
	timer.Now = fixedClock(testNow)

	state, err := timer.State(t.Context(), "alice")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.RemainingTime != 3500 {
		t.Fatalf("remaining = %d, want 3500", state.RemainingTime)
	}

	// A raise leaves the running round alone and applies to new rounds.
	timer.SetLimit(2 * time.Hour)
	f.addParticipant(t, "carol", testNow.Add(10*time.Second))
	timer.Now = fixedClock(testNow.Add(20 * time.Second))

	if state, _ = timer.State(t.Context(), "alice"); state.RemainingTime != 3480 {
		t.Fatalf("alice remaining after raise = %d, want 3480", state.RemainingTime)
	}
	if state, _ = timer.State(t.Context(), "carol"); state.RemainingTime != 7190 {
		t.Fatalf("carol remaining = %d, want 7190", state.RemainingTime)
	}

	// A cut applies to everyone at once.
	timer.SetLimit(30 * time.Minute)
	if state, _ = timer.State(t.Context(), "alice"); state.RemainingTime != 1680 {
		t.Fatalf("alice remaining after cut = %d, want 1680", state.RemainingTime)
	}
	if state, _ = timer.State(t.Context(), "carol"); state.RemainingTime != 1790 {
		t.Fatalf("carol remaining after cut = %d, want 1790", state.RemainingTime)
	}
	if got := timer.Limit(); got != 30*time.Minute {
		t.Fatalf("Limit = %v, want 30m", got)
	}
	if got := timer.LimitFor(time.Time{}); got != 30*time.Minute {
		t.Fatalf("LimitFor(unknown) = %v, want 30m", got)
	}
}

func TestTimerStateErrors(t *testing.T) {
	f := newFixture(t)
	timer := NewTimerService(f.participants, time.Hour)

	if _, err := timer.State(t.Context(), util.AnonymousUser); !errors.Is(err, util.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := timer.State(t.Context(), "ghost"); !errors.Is(err, util.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestTimerStateUnreadableStart(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "bob", testNow)
	if err := f.db.Exec("UPDATE participants SET round_start_time = ?, elapsed_time = ? WHERE name = ?", "garbage", 200, "bob").Error; err != nil {
		t.Fatalf("corrupt start: %v", err)
	}

	timer := NewTimerService(f.participants, time.Hour)
	timer.Now = fixedClock(testNow)
	state, err := timer.State(t.Context(), "bob")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.RemainingTime != 3400 {
		t.Fatalf("remaining = %d, want 3400", state.RemainingTime)
	}
}
