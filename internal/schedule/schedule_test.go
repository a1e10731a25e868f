package schedule

import (
	"errors"
	"testing"
)

func TestParseValid(t *testing.T) {
	t.Parallel()
	got, err := Parse("09:00:17:30:1-5")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := Schedule{
		Start:    WallClock{Hour: 9, Minute: 0},
		Stop:     WallClock{Hour: 17, Minute: 30},
		FirstDay: 1,
		LastDay:  5,
	}
	if got != want {
		t.Fatalf("Parse = %+v, want %+v", got, want)
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "garbage", raw: "bad"},
		{name: "no schedule sentinel", raw: "(no schedule)"},
		{name: "four fields", raw: "09:00:17:30"},
		{name: "six fields", raw: "09:00:17:30:1-5:x"},
		{name: "start equals stop", raw: "09:00:09:00:1-5"},
		{name: "start after stop", raw: "17:00:09:00:1-5"},
		{name: "hour out of range", raw: "24:00:25:00:1-5"},
		{name: "minute out of range", raw: "09:60:17:30:1-5"},
		{name: "single digit hour", raw: "9:00:17:30:1-5"},
		{name: "non-numeric time", raw: "ab:00:17:30:1-5"},
		{name: "no hyphen in days", raw: "09:00:17:30:15"},
		{name: "two hyphens in days", raw: "09:00:17:30:1-3-5"},
		{name: "non-integer day", raw: "09:00:17:30:a-5"},
		{name: "first day after last", raw: "09:00:17:30:5-1"},
		{name: "day out of range high", raw: "09:00:17:30:1-8"},
		{name: "day out of range low", raw: "09:00:17:30:0-5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.raw)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Parse(%q) error %v does not wrap ErrInvalid", tt.raw, err)
			}
		})
	}
}

func TestParseBoundsHold(t *testing.T) {
	t.Parallel()
	valid := []string{
		"00:00:23:59:1-7",
		"08:15:08:16:3-3",
		"09:00:17:30:1-5",
	}
	for _, raw := range valid {
		s, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", raw, err)
		}
		if s.Start.Minutes() >= s.Stop.Minutes() {
			t.Errorf("Parse(%q): start %s not before stop %s", raw, s.Start, s.Stop)
		}
		if s.FirstDay < 1 || s.FirstDay > s.LastDay || s.LastDay > 7 {
			t.Errorf("Parse(%q): day range %d-%d out of bounds", raw, s.FirstDay, s.LastDay)
		}
	}
}

func TestContains(t *testing.T) {
	t.Parallel()
	s, err := Parse("09:00:17:30:2-4")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	for day, want := range map[int]bool{1: false, 2: true, 3: true, 4: true, 5: false, 7: false} {
		if got := s.Contains(day); got != want {
			t.Errorf("Contains(%d) = %v, want %v", day, got, want)
		}
	}
}
