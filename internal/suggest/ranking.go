package suggest

import "sort"

var tierOrder = map[Tier]int{P0: 0, P1: 1, P2: 2, P3: 3}

var impactOrder = map[Impact]int{High: 0, Medium: 1, Low: 2}

// Rank orders recommendations by tier, then impact. Ties keep their
// original order.
func Rank(recs []Recommendation) []Recommendation {
	sorted := make([]Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if tierOrder[a.Tier] != tierOrder[b.Tier] {
			return tierOrder[a.Tier] < tierOrder[b.Tier]
		}
		return impactOrder[a.Impact] < impactOrder[b.Impact]
	})
	return sorted
}

// Filter narrows a ranked list. Zero-valued options match everything; a
// positive limit truncates the result.
type Filter struct {
	MaxTier  Tier
	Category Category
	Limit    int
}

// Apply returns the recommendations that pass f, preserving order.
func (f Filter) Apply(recs []Recommendation) []Recommendation {
	var out []Recommendation
	for _, r := range recs {
		if f.MaxTier != "" && tierOrder[r.Tier] > tierOrder[f.MaxTier] {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// ValidTier reports whether t is a known tier.
func ValidTier(t Tier) bool {
	_, ok := tierOrder[t]
	return ok
}
