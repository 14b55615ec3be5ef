package mining

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

func mineGroceries(t *testing.T, minSupport float64) *MineResult {
	t.Helper()
	res, err := NewMiner(minSupport, 0).Mine(context.Background(), groceries())
	require.NoError(t, err)
	return res
}

func TestGenerateRules_Properties(t *testing.T) {
	res := mineGroceries(t, 0.2)

	rules, err := GenerateRules(res.Itemsets, res.Supports, RuleOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, rules)

	for _, r := range rules {
		require.NotEmpty(t, r.Antecedent)
		require.NotEmpty(t, r.Consequent)

		seen := map[string]struct{}{}
		for _, a := range r.Antecedent {
			seen[a] = struct{}{}
		}
		for _, c := range r.Consequent {
			_, overlap := seen[c]
			assert.False(t, overlap, "rule %s has overlapping sides", r)
		}

		union := model.DistinctSorted(append(append([]string{}, r.Antecedent...), r.Consequent...))
		suppUnion, ok := res.Supports.Lookup(union)
		require.True(t, ok)
		suppA, _ := res.Supports.Lookup(r.Antecedent)
		suppC, _ := res.Supports.Lookup(r.Consequent)

		assert.InDelta(t, suppUnion/suppA, r.Confidence, 1e-9)
		assert.InDelta(t, r.Confidence/suppC, r.Lift, 1e-9)
		assert.InDelta(t, suppUnion, r.Support, 1e-12)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0+1e-12)
		assert.GreaterOrEqual(t, r.Lift, 0.0)
	}
}

func TestGenerateRules_Enumeration(t *testing.T) {
	res := mineGroceries(t, 0.6)

	rules, err := GenerateRules(res.Itemsets, res.Supports, RuleOptions{})
	require.NoError(t, err)

	// four frequent pairs, two directions each
	assert.Len(t, rules, 8)

	three := model.Itemset{Items: []string{"a", "b", "c"}, Support: 0.2, Count: 1}
	index := NewSupportIndex(5)
	for _, s := range [][]string{{"a"}, {"b"}, {"c"}, {"a", "b"}, {"a", "c"}, {"b", "c"}} {
		index.Set(s, 2)
	}
	index.Set([]string{"a", "b", "c"}, 1)

	rules, err = GenerateRules([]model.Itemset{three}, index, RuleOptions{})
	require.NoError(t, err)
	assert.Len(t, rules, 6)
}

func TestGenerateRules_Filters(t *testing.T) {
	res := mineGroceries(t, 0.4)

	all, err := GenerateRules(res.Itemsets, res.Supports, RuleOptions{})
	require.NoError(t, err)

	confident, err := GenerateRules(res.Itemsets, res.Supports, RuleOptions{MinConfidence: 0.75})
	require.NoError(t, err)
	assert.Less(t, len(confident), len(all))
	for _, r := range confident {
		assert.GreaterOrEqual(t, r.Confidence, 0.75)
	}

	lifted, err := GenerateRules(res.Itemsets, res.Supports, RuleOptions{MinLift: 1.0})
	require.NoError(t, err)
	for _, r := range lifted {
		assert.GreaterOrEqual(t, r.Lift, 1.0-1e-12)
	}
}

func TestGenerateRules_ExactRatios(t *testing.T) {
	// 3 of the 4 baskets holding diapers also hold beer; beer appears in 3 of 5
	data := txns(
		[]string{"beer", "diapers"},
		[]string{"beer", "diapers"},
		[]string{"beer", "diapers", "milk"},
		[]string{"diapers", "milk"},
		[]string{"bread", "milk"},
	)
	res, err := NewMiner(0.2, 0).Mine(context.Background(), data)
	require.NoError(t, err)

	rules, err := GenerateRules(res.Itemsets, res.Supports, RuleOptions{MinConfidence: 0.75})
	require.NoError(t, err)

	var found *model.Rule
	for i := range rules {
		if rules[i].AntecedentLabel() == "diapers" && rules[i].ConsequentLabel() == "beer" {
			found = &rules[i]
		}
	}
	require.NotNil(t, found, "rules: %v", rules)
	assert.Equal(t, 0.75, found.Confidence)
	assert.Equal(t, 1.25, found.Lift)
	assert.Equal(t, 0.6, found.Support)
}

func TestGenerateRules_NoPairs(t *testing.T) {
	res, err := NewMiner(0.5, 0).Mine(context.Background(), txns([]string{"chips"}, []string{"soda"}, []string{"chips"}))
	require.NoError(t, err)

	rules, err := GenerateRules(res.Itemsets, res.Supports, RuleOptions{})
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestGenerateRules_MissingSubset(t *testing.T) {
	pair := model.Itemset{Items: []string{"bread", "milk"}, Support: 0.5, Count: 5}
	index := NewSupportIndex(10)
	index.Set([]string{"bread"}, 7)

	_, err := GenerateRules([]model.Itemset{pair}, index, RuleOptions{})
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
	assert.ErrorIs(t, err, common.ErrSupportLookup)
	assert.Contains(t, err.Error(), "milk")
}

func TestGenerateRules_InconsistentSupport(t *testing.T) {
	pair := model.Itemset{Items: []string{"a", "b"}, Support: 0.9, Count: 9}
	index := NewSupportIndex(10)
	index.Set([]string{"a"}, 5)
	index.Set([]string{"b"}, 9)

	_, err := GenerateRules([]model.Itemset{pair}, index, RuleOptions{})
	require.ErrorIs(t, err, common.ErrInvariant)
}

func TestGenerateRules_InvalidOptions(t *testing.T) {
	for _, opts := range []RuleOptions{{MinConfidence: -0.1}, {MinConfidence: 1.1}, {MinLift: -1}} {
		_, err := GenerateRules(nil, SupportIndex{}, opts)
		require.Error(t, err)
		assert.Equal(t, common.KindThreshold, common.KindOf(err))
	}
}

func TestSortRules_TieBreak(t *testing.T) {
	rules := []model.Rule{
		{Antecedent: []string{"a"}, Consequent: []string{"b"}, Lift: 1.5, Confidence: 0.5, Support: 0.1},
		{Antecedent: []string{"c"}, Consequent: []string{"d"}, Lift: 2.0, Confidence: 0.4, Support: 0.1},
		{Antecedent: []string{"e"}, Consequent: []string{"f"}, Lift: 1.5, Confidence: 0.6, Support: 0.1},
		{Antecedent: []string{"g"}, Consequent: []string{"h"}, Lift: 1.5, Confidence: 0.5, Support: 0.3},
		{Antecedent: []string{"i"}, Consequent: []string{"j"}, Lift: 1.5, Confidence: 0.5, Support: 0.1},
	}

	SortRules(rules)

	var order []string
	for _, r := range rules {
		order = append(order, r.Antecedent[0])
	}
	assert.Equal(t, []string{"c", "e", "g", "a", "i"}, order)
}

func TestTopRules(t *testing.T) {
	rules := []model.Rule{
		{Antecedent: []string{"a"}, Consequent: []string{"b"}, Lift: 1},
		{Antecedent: []string{"c"}, Consequent: []string{"d"}, Lift: 3},
		{Antecedent: []string{"e"}, Consequent: []string{"f"}, Lift: 2},
	}

	top := TopRules(rules, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 3.0, top[0].Lift)
	assert.Equal(t, 2.0, top[1].Lift)
	assert.Equal(t, 1.0, rules[0].Lift, "input must not be reordered")

	assert.Len(t, TopRules(rules, 10), 3)
	assert.Empty(t, TopRules(rules, 0))
}
