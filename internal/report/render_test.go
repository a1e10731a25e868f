package report

import (
	"strings"
	"testing"

	"powerctl/internal/fleet"
)

func TestRenderOwnerNotification(t *testing.T) {
	t.Parallel()
	body, err := RenderOwnerNotification(OwnerNotification{
		Owner: "dev@example.com",
		Instances: []fleet.Instance{
			{ID: "i-1", Name: "build-box", Region: "eu-de-1", Schedule: "09:00:17:30:1-5", ScheduleTZ: "Europe/Berlin"},
		},
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for _, want := range []string{"i-1", "build-box", "eu-de-1", "09:00:17:30:1-5", "Europe/Berlin", "dry run"} {
		if !strings.Contains(body, want) {
			t.Errorf("owner notification missing %q", want)
		}
	}
}

func TestRenderRunReport(t *testing.T) {
	t.Parallel()
	body, err := RenderRunReport(RunReport{
		RunTime: "Wednesday (3) 14:01",
		ToStop: []fleet.Instance{
			{ID: "i-1", Name: "build-box", Owner: "dev@example.com", Region: "eu-de-1", Schedule: "09:00:17:30:1-5"},
		},
		Malformed:      []fleet.Instance{{ID: "i-2", Owner: "ops@example.com", Schedule: "nonsense"}},
		NotifiedOwners: []string{"dev@example.com"},
		ProblemOwners:  []string{"gone@example.com"},
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for _, want := range []string{"Wednesday (3) 14:01", "i-1", "nonsense", "dev@example.com", "gone@example.com"} {
		if !strings.Contains(body, want) {
			t.Errorf("run report missing %q", want)
		}
	}
}
