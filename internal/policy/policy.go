// Package policy classifies instances against their running schedule.
//
// Evaluate is pure: it stops nothing and notifies nobody. The caller decides
// what to do with the classification.
package policy

import (
	"strings"
	"time"

	"powerctl/internal/fleet"
	"powerctl/internal/schedule"
)

// Reason is the single-valued outcome of evaluating one instance.
type Reason int

// Classification precedence, first match wins. InvalidZone is checked before
// the schedule grammar: an unresolvable explicit zone makes the day/time
// checks meaningless regardless of what the schedule tag says.
const (
	NotRunning Reason = iota
	NoOwner
	ProtectedOwner
	InvalidZone
	Malformed
	DayMismatch
	TimeMismatch
	Allowed
)

var reasonNames = map[Reason]string{
	NotRunning:     "not_running",
	NoOwner:        "no_owner",
	ProtectedOwner: "protected_owner",
	InvalidZone:    "invalid_zone",
	Malformed:      "malformed",
	DayMismatch:    "day_mismatch",
	TimeMismatch:   "time_mismatch",
	Allowed:        "allowed",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

// ShouldStop reports whether this classification marks the instance for
// stopping. All other reasons are informational.
func (r Reason) ShouldStop() bool { return r == DayMismatch || r == TimeMismatch }

// Result carries the classification together with the originating snapshot,
// for reporting.
type Result struct {
	Instance fleet.Instance
	Reason   Reason
}

// Options are the process-wide evaluation settings.
type Options struct {
	// ProtectedOwners is a set of lowercased owner emails that are never
	// stopped regardless of schedule.
	ProtectedOwners map[string]struct{}

	// DefaultZone applies when an instance carries no explicit zone tag.
	// nil means UTC.
	DefaultZone *time.Location
}

// NewOptions normalizes a protected-owner list (trim, lowercase, drop empties)
// into evaluation options.
func NewOptions(protectedOwners []string, defaultZone *time.Location) Options {
	set := make(map[string]struct{}, len(protectedOwners))
	for _, o := range protectedOwners {
		o = strings.ToLower(strings.TrimSpace(o))
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return Options{ProtectedOwners: set, DefaultZone: defaultZone}
}

// Evaluate classifies one instance at the given instant.
//
// now is converted into the instance's effective zone (explicit tag, else the
// default) before the weekday and wall-clock checks; it is never compared in
// UTC directly. Boundaries are inclusive: exactly Start or exactly Stop is
// allowed.
func Evaluate(inst fleet.Instance, now time.Time, opts Options) Reason {
	if !inst.Running {
		return NotRunning
	}

	if !inst.HasOwner() {
		return NoOwner
	}

	if _, ok := opts.ProtectedOwners[inst.Owner]; ok {
		return ProtectedOwner
	}

	loc := opts.DefaultZone
	if loc == nil {
		loc = time.UTC
	}
	if inst.ScheduleTZ != "" {
		z, err := time.LoadLocation(inst.ScheduleTZ)
		if err != nil {
			return InvalidZone
		}
		loc = z
	}

	sched, err := schedule.Parse(inst.Schedule)
	if err != nil {
		return Malformed
	}

	local := now.In(loc)
	if !sched.Contains(isoWeekday(local)) {
		return DayMismatch
	}

	cur := local.Hour()*60 + local.Minute()
	if cur < sched.Start.Minutes() || cur > sched.Stop.Minutes() {
		return TimeMismatch
	}

	return Allowed
}

// isoWeekday maps Go's Sunday-based weekday to ISO 8601 (1=Monday, 7=Sunday).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
