package report

import (
	"testing"

	"powerctl/internal/fleet"
)

func inst(id, owner, region string) fleet.Instance {
	return fleet.Instance{ID: id, Owner: owner, Region: region}
}

func TestGroupByOwnerOrder(t *testing.T) {
	t.Parallel()
	in := []fleet.Instance{
		inst("i-1", "bob@example.com", "eu-de-1"),
		inst("i-2", "alice@example.com", "eu-de-1"),
		inst("i-3", "bob@example.com", "eu-nl-1"),
		inst("i-4", "alice@example.com", "eu-de-2"),
	}

	groups := GroupByOwner(in)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	// First-seen key order.
	if groups[0].Key != "bob@example.com" || groups[1].Key != "alice@example.com" {
		t.Fatalf("group keys = [%s %s], want first-seen order", groups[0].Key, groups[1].Key)
	}
	// Encounter order within groups.
	if groups[0].Instances[0].ID != "i-1" || groups[0].Instances[1].ID != "i-3" {
		t.Fatalf("bob's group out of order: %+v", groups[0].Instances)
	}
	if groups[1].Instances[0].ID != "i-2" || groups[1].Instances[1].ID != "i-4" {
		t.Fatalf("alice's group out of order: %+v", groups[1].Instances)
	}
}

func TestGroupByRegion(t *testing.T) {
	t.Parallel()
	in := []fleet.Instance{
		inst("i-1", "a@example.com", "eu-nl-1"),
		inst("i-2", "b@example.com", "eu-de-1"),
		inst("i-3", "c@example.com", "eu-nl-1"),
	}

	groups := GroupByRegion(in)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Key != "eu-nl-1" || len(groups[0].Instances) != 2 {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
	if groups[1].Key != "eu-de-1" || len(groups[1].Instances) != 1 {
		t.Fatalf("unexpected second group: %+v", groups[1])
	}
}

func TestGroupByEmptyInput(t *testing.T) {
	t.Parallel()
	if groups := GroupByOwner(nil); len(groups) != 0 {
		t.Fatalf("got %d groups for empty input, want 0", len(groups))
	}
}
