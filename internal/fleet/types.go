package fleet

import (
	"context"
	"strings"
)

// Tag keys recognized on compute instances.
const (
	TagOwner      = "OWNEREMAIL"
	TagSchedule   = "RUNNINGSCHEDULE"
	TagScheduleTZ = "RUNNINGSCHEDULE_TZ"
	TagName       = "Name"
)

// Sentinel values used when a tag is absent. They appear verbatim in reports.
const (
	NoOwner    = "(no owner)"
	NoSchedule = "(no schedule)"
	NoName     = "(no name)"
)

// Instance is a provider-agnostic snapshot of one compute instance.
// It is read-only input to the evaluation pipeline.
type Instance struct {
	ID     string
	Name   string
	Region string

	// Owner is the lowercased, trimmed OWNEREMAIL tag, or NoOwner.
	Owner string

	Running bool

	// Schedule is the raw RUNNINGSCHEDULE tag value, or NoSchedule.
	Schedule string

	// ScheduleTZ is the RUNNINGSCHEDULE_TZ tag value.
	// Empty means "no explicit zone": the configured default zone applies.
	ScheduleTZ string
}

// FromTags builds a snapshot from a flat tag lookup.
// name is the provider-level instance name; the Name tag wins when set (some
// providers only carry the display name as a tag).
func FromTags(id, region, name string, running bool, tags map[string]string) Instance {
	owner := strings.ToLower(strings.TrimSpace(tags[TagOwner]))
	if owner == "" {
		owner = NoOwner
	}
	sched := tags[TagSchedule]
	if sched == "" {
		sched = NoSchedule
	}
	if tag := strings.TrimSpace(tags[TagName]); tag != "" {
		name = tag
	}
	if strings.TrimSpace(name) == "" {
		name = NoName
	}
	return Instance{
		ID:         id,
		Name:       name,
		Region:     region,
		Owner:      owner,
		Running:    running,
		Schedule:   sched,
		ScheduleTZ: strings.TrimSpace(tags[TagScheduleTZ]),
	}
}

// HasOwner reports whether the instance carries a usable owner contact.
func (i Instance) HasOwner() bool { return i.Owner != "" && i.Owner != NoOwner }

// Provider enumerates and stops instances. Implementations live in
// subpackages; tests use in-memory fakes.
//
// ListInstances may return instances in any order. StopInstances is expected
// to be best-effort per id; a failed id must not prevent stopping the others.
type Provider interface {
	ListInstances(ctx context.Context, region string) ([]Instance, error)
	StopInstances(ctx context.Context, region string, ids []string) error
}
