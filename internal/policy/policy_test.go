package policy

import (
	"testing"
	"time"

	"powerctl/internal/fleet"
)

// wednesday returns 2024-01-03 (a Wednesday) at the given wall-clock UTC time.
func wednesday(hour, minute int) time.Time {
	return time.Date(2024, time.January, 3, hour, minute, 0, 0, time.UTC)
}

func testInstance() fleet.Instance {
	return fleet.Instance{
		ID:       "i-1",
		Name:     "build-box",
		Region:   "eu-de-1",
		Owner:    "dev@example.com",
		Running:  true,
		Schedule: "09:00:17:30:1-5",
	}
}

func TestEvaluatePrecedence(t *testing.T) {
	t.Parallel()
	now := wednesday(12, 0)

	t.Run("not running wins over everything", func(t *testing.T) {
		t.Parallel()
		inst := testInstance()
		inst.Running = false
		inst.Owner = fleet.NoOwner
		inst.Schedule = "garbage"
		if got := Evaluate(inst, now, Options{}); got != NotRunning {
			t.Fatalf("Evaluate = %v, want %v", got, NotRunning)
		}
	})

	t.Run("no owner regardless of schedule validity", func(t *testing.T) {
		t.Parallel()
		for _, sched := range []string{"09:00:17:30:1-5", "garbage", fleet.NoSchedule} {
			inst := testInstance()
			inst.Owner = fleet.NoOwner
			inst.Schedule = sched
			if got := Evaluate(inst, now, Options{}); got != NoOwner {
				t.Fatalf("schedule %q: Evaluate = %v, want %v", sched, got, NoOwner)
			}
		}
	})

	t.Run("protected owner never stopped", func(t *testing.T) {
		t.Parallel()
		inst := testInstance()
		opts := NewOptions([]string{" Dev@Example.COM "}, nil)
		// Outside the schedule on purpose: protection wins.
		if got := Evaluate(inst, wednesday(3, 0), opts); got != ProtectedOwner {
			t.Fatalf("Evaluate = %v, want %v", got, ProtectedOwner)
		}
	})

	t.Run("invalid explicit zone beats malformed schedule", func(t *testing.T) {
		t.Parallel()
		inst := testInstance()
		inst.ScheduleTZ = "Mars/Olympus_Mons"
		inst.Schedule = "garbage"
		if got := Evaluate(inst, now, Options{}); got != InvalidZone {
			t.Fatalf("Evaluate = %v, want %v", got, InvalidZone)
		}
	})

	t.Run("absent zone tag uses default and never InvalidZone", func(t *testing.T) {
		t.Parallel()
		inst := testInstance()
		inst.Schedule = "garbage"
		if got := Evaluate(inst, now, Options{}); got != Malformed {
			t.Fatalf("Evaluate = %v, want %v", got, Malformed)
		}
	})

	t.Run("absent schedule tag is malformed", func(t *testing.T) {
		t.Parallel()
		inst := testInstance()
		inst.Schedule = fleet.NoSchedule
		if got := Evaluate(inst, now, Options{}); got != Malformed {
			t.Fatalf("Evaluate = %v, want %v", got, Malformed)
		}
	})
}

func TestEvaluateDayAndTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		now  time.Time
		want Reason
	}{
		{name: "inside window", now: wednesday(12, 0), want: Allowed},
		{name: "exactly start", now: wednesday(9, 0), want: Allowed},
		{name: "exactly stop", now: wednesday(17, 30), want: Allowed},
		{name: "one minute before start", now: wednesday(8, 59), want: TimeMismatch},
		{name: "one minute after stop", now: wednesday(17, 31), want: TimeMismatch},
		{name: "boundary second still inside minute", now: wednesday(17, 30).Add(30 * time.Second), want: Allowed},
		// 2024-01-07 is a Sunday (ISO day 7), outside 1-5, any time of day.
		{name: "sunday midday", now: time.Date(2024, time.January, 7, 12, 0, 0, 0, time.UTC), want: DayMismatch},
		{name: "sunday outside window too", now: time.Date(2024, time.January, 7, 3, 0, 0, 0, time.UTC), want: DayMismatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Evaluate(testInstance(), tt.now, Options{}); got != tt.want {
				t.Fatalf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateZoneConversion(t *testing.T) {
	t.Parallel()
	inst := testInstance()
	inst.ScheduleTZ = "America/New_York"

	// 13:59 UTC on 2024-01-03 is 08:59 in New York (UTC-5): before start.
	if got := Evaluate(inst, wednesday(13, 59), Options{}); got != TimeMismatch {
		t.Fatalf("Evaluate = %v, want %v", got, TimeMismatch)
	}
	// 14:00 UTC is exactly 09:00 local: boundary inclusive.
	if got := Evaluate(inst, wednesday(14, 0), Options{}); got != Allowed {
		t.Fatalf("Evaluate = %v, want %v", got, Allowed)
	}
}

func TestEvaluateDefaultZone(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	inst := testInstance()
	opts := Options{DefaultZone: ny}

	// Same instant as the explicit-zone test; the default applies when the
	// instance carries no zone tag.
	if got := Evaluate(inst, wednesday(13, 59), opts); got != TimeMismatch {
		t.Fatalf("Evaluate = %v, want %v", got, TimeMismatch)
	}
	if got := Evaluate(inst, wednesday(14, 0), opts); got != Allowed {
		t.Fatalf("Evaluate = %v, want %v", got, Allowed)
	}
}

func TestShouldStop(t *testing.T) {
	t.Parallel()
	stop := map[Reason]bool{
		NotRunning:     false,
		NoOwner:        false,
		ProtectedOwner: false,
		InvalidZone:    false,
		Malformed:      false,
		DayMismatch:    true,
		TimeMismatch:   true,
		Allowed:        false,
	}
	for reason, want := range stop {
		if got := reason.ShouldStop(); got != want {
			t.Errorf("%v.ShouldStop() = %v, want %v", reason, got, want)
		}
	}
}
