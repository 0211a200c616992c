package graph

import "sort"

// mergeAttributes folds incoming attribute values into existing ones.
// A populated value is never overwritten: the incoming value wins only when
// the existing one is empty. This makes the merge commutative up to
// first-sighting and safe under arbitrary write order.
func mergeAttributes(existing, incoming map[string]string) map[string]string {
	if existing == nil {
		existing = make(map[string]string)
	}
	for k, v := range incoming {
		if v == "" {
			continue
		}
		if existing[k] == "" {
			existing[k] = v
		}
	}
	return existing
}

// mergeSources appends sourceID to the source set, keeping it sorted and
// duplicate-free so repeat sightings from the same bucket are no-ops.
func mergeSources(sources []string, sourceID string) []string {
	if sourceID == "" {
		return sources
	}
	for _, s := range sources {
		if s == sourceID {
			return sources
		}
	}
	sources = append(sources, sourceID)
	sort.Strings(sources)
	return sources
}

func maxConfidence(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
