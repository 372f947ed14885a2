package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_StableWithinTierAndImpact(t *testing.T) {
	in := []Recommendation{
		{Tier: P2, Impact: Low, Message: "a"},
		{Tier: P0, Impact: Medium, Message: "b"},
		{Tier: P2, Impact: Low, Message: "c"},
		{Tier: P0, Impact: High, Message: "d"},
		{Tier: P3, Impact: High, Message: "e"},
	}
	got := Rank(in)
	var order []string
	for _, r := range got {
		order = append(order, r.Message)
	}
	assert.Equal(t, []string{"d", "b", "a", "c", "e"}, order)
	assert.Equal(t, "a", in[0].Message, "input is not modified")
}

func TestFilter(t *testing.T) {
	recs := []Recommendation{
		{Tier: P0, Category: CategoryTypeStrictness},
		{Tier: P1, Category: CategoryLintErrors},
		{Tier: P2, Category: CategoryTestCoverage},
		{Tier: P3, Category: CategoryGeneral},
	}
	assert.Len(t, Filter{}.Apply(recs), 4)
	assert.Len(t, Filter{MaxTier: P1}.Apply(recs), 2)
	assert.Equal(t, CategoryTestCoverage, Filter{Category: CategoryTestCoverage}.Apply(recs)[0].Category)
	assert.Len(t, Filter{Limit: 3}.Apply(recs), 3)
}
