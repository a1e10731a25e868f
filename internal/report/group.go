// Package report groups decision results for downstream notification and stop
// actions, and renders the notification bodies. No decision logic lives here.
package report

import "powerctl/internal/fleet"

// Group is one key bucket with its members in encounter order.
type Group struct {
	Key       string
	Instances []fleet.Instance
}

// GroupByOwner buckets instances per owner for notification batches.
// Keys appear in first-seen order; members keep input order. Owners with zero
// members produce no group.
func GroupByOwner(instances []fleet.Instance) []Group {
	return groupBy(instances, func(i fleet.Instance) string { return i.Owner })
}

// GroupByRegion buckets instances per region for batched stop calls.
func GroupByRegion(instances []fleet.Instance) []Group {
	return groupBy(instances, func(i fleet.Instance) string { return i.Region })
}

func groupBy(instances []fleet.Instance, key func(fleet.Instance) string) []Group {
	index := map[string]int{}
	groups := make([]Group, 0, 4)
	for _, inst := range instances {
		k := key(inst)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Instances = append(groups[i].Instances, inst)
	}
	return groups
}
