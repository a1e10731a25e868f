// Package schedule parses the RUNNINGSCHEDULE tag grammar.
//
// A valid tag value has exactly five colon-separated fields:
//
//	HH:MM:HH:MM:D-D
//
// The first four fields form two 24h wall-clock times (start, stop) and the
// last field is an ISO weekday range (1=Monday .. 7=Sunday). The start time
// must be strictly before the stop time, so schedules spanning midnight are
// not representable. Neither is a weekday range wrapping the week boundary
// (e.g. Fri-Mon).
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalid is wrapped by every parse failure. Callers only need to branch
// on "valid schedule" vs "not"; the detail text exists for log readability.
var ErrInvalid = errors.New("invalid schedule")

// WallClock is a time of day at minute resolution.
type WallClock struct {
	Hour   int
	Minute int
}

// Minutes returns the minute-of-day, for ordering comparisons.
func (w WallClock) Minutes() int { return w.Hour*60 + w.Minute }

func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// Schedule is the parsed, validated form of a RUNNINGSCHEDULE tag.
// Immutable once parsed: either every invariant below holds or Parse failed.
//
//   - Start < Stop (strictly)
//   - 1 <= FirstDay <= LastDay <= 7
type Schedule struct {
	Start    WallClock
	Stop     WallClock
	FirstDay int
	LastDay  int
}

func (s Schedule) String() string {
	return fmt.Sprintf("%s:%s:%d-%d", s.Start, s.Stop, s.FirstDay, s.LastDay)
}

// Contains reports whether the given ISO weekday falls inside the day range.
func (s Schedule) Contains(isoWeekday int) bool {
	return isoWeekday >= s.FirstDay && isoWeekday <= s.LastDay
}

// Parse parses a raw RUNNINGSCHEDULE tag value.
// All failures wrap ErrInvalid.
func Parse(raw string) (Schedule, error) {
	tokens := strings.Split(raw, ":")

	// The schedule must have exactly 5 fields.
	if len(tokens) != 5 {
		return Schedule{}, fmt.Errorf("%w: want 5 fields, got %d", ErrInvalid, len(tokens))
	}

	// The first 4 fields must form 2 valid 24h times.
	start, err := parseWallClock(tokens[0], tokens[1])
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: start time: %v", ErrInvalid, err)
	}
	stop, err := parseWallClock(tokens[2], tokens[3])
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: stop time: %v", ErrInvalid, err)
	}

	// The start time must be strictly before the stop time.
	if start.Minutes() >= stop.Minutes() {
		return Schedule{}, fmt.Errorf("%w: start %s not before stop %s", ErrInvalid, start, stop)
	}

	// The last field must have exactly 1 hyphen.
	dayTokens := strings.Split(tokens[4], "-")
	if len(dayTokens) != 2 {
		return Schedule{}, fmt.Errorf("%w: day range %q", ErrInvalid, tokens[4])
	}

	firstDay, err := strconv.Atoi(dayTokens[0])
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: first day %q", ErrInvalid, dayTokens[0])
	}
	lastDay, err := strconv.Atoi(dayTokens[1])
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: last day %q", ErrInvalid, dayTokens[1])
	}

	if lastDay < firstDay {
		return Schedule{}, fmt.Errorf("%w: first day %d after last day %d", ErrInvalid, firstDay, lastDay)
	}
	if firstDay < 1 || firstDay > 7 || lastDay < 1 || lastDay > 7 {
		return Schedule{}, fmt.Errorf("%w: days %d-%d outside 1-7", ErrInvalid, firstDay, lastDay)
	}

	return Schedule{Start: start, Stop: stop, FirstDay: firstDay, LastDay: lastDay}, nil
}

func parseWallClock(hh, mm string) (WallClock, error) {
	h, err := parseTwoDigits(hh)
	if err != nil {
		return WallClock{}, err
	}
	m, err := parseTwoDigits(mm)
	if err != nil {
		return WallClock{}, err
	}
	if h > 23 {
		return WallClock{}, fmt.Errorf("hour %d out of range", h)
	}
	if m > 59 {
		return WallClock{}, fmt.Errorf("minute %d out of range", m)
	}
	return WallClock{Hour: h, Minute: m}, nil
}

// parseTwoDigits accepts exactly two ASCII digits ("09", "23").
// Signs, spaces and bare single digits are malformed.
func parseTwoDigits(s string) (int, error) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, fmt.Errorf("bad time component %q", s)
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), nil
}
