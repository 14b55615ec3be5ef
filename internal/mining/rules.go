package mining

import (
	"math"
	"sort"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// maxRuleItemset bounds the subset enumeration of a single itemset.
const maxRuleItemset = 30

// RuleOptions are the filters applied to candidate rules.
type RuleOptions struct {
	MinConfidence float64
	MinLift       float64 // zero keeps every rule
}

// Validate checks the option ranges.
func (o RuleOptions) Validate() error {
	if math.IsNaN(o.MinConfidence) || o.MinConfidence < 0 || o.MinConfidence > 1 {
		return common.NewThresholdError("min_confidence", "must be in [0, 1], got %v", o.MinConfidence)
	}
	if math.IsNaN(o.MinLift) || o.MinLift < 0 {
		return common.NewThresholdError("min_lift", "must be at least 0, got %v", o.MinLift)
	}
	return nil
}

// GenerateRules derives every rule A => C where A ∪ C is a frequent itemset of
// size two or more. Counts of A and C are read from index, never recounted;
// a missing entry means the itemsets were not closed under subsets, which is
// reported as a MiningError. Rules come back in generation order.
func GenerateRules(itemsets []model.Itemset, index SupportIndex, opts RuleOptions) ([]model.Rule, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	n := index.Transactions()
	var rules []model.Rule
	for _, set := range itemsets {
		k := set.Size()
		if k < 2 {
			continue
		}
		if k > maxRuleItemset {
			return nil, common.NewMiningError(common.ErrInvariant, "itemset {%s} has %d items, too many to enumerate", set.Label(), k)
		}

		full := uint32(1)<<k - 1
		for mask := uint32(1); mask < full; mask++ {
			antecedent, consequent := split(set.Items, mask)

			countA, ok := index.Count(antecedent)
			if !ok {
				return nil, common.NewMiningError(common.ErrSupportLookup, "antecedent {%s} of {%s}", joinLabels(antecedent), set.Label())
			}
			countC, ok := index.Count(consequent)
			if !ok {
				return nil, common.NewMiningError(common.ErrSupportLookup, "consequent {%s} of {%s}", joinLabels(consequent), set.Label())
			}
			if countA <= 0 || countC <= 0 || set.Count > countA || set.Count > countC {
				return nil, common.NewMiningError(common.ErrInvariant,
					"count of {%s} (%d) exceeds a subset count (%d, %d)", set.Label(), set.Count, countA, countC)
			}

			// count ratios, not support ratios, so 3/4 is exactly 0.75
			confidence := float64(set.Count) / float64(countA)
			lift := confidence * float64(n) / float64(countC)

			if confidence+supportEpsilon < opts.MinConfidence {
				continue
			}
			if opts.MinLift > 0 && lift+supportEpsilon < opts.MinLift {
				continue
			}

			rules = append(rules, model.Rule{
				Antecedent: antecedent,
				Consequent: consequent,
				Support:    set.Support,
				Confidence: confidence,
				Lift:       lift,
			})
		}
	}

	return rules, nil
}

// SortRules orders rules by lift, then confidence, then support, all
// descending. Exact ties keep their existing order.
func SortRules(rules []model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Support > b.Support
	})
}

// TopRules returns the first n rules of a sorted copy. n <= 0 yields none.
func TopRules(rules []model.Rule, n int) []model.Rule {
	if n <= 0 {
		return []model.Rule{}
	}
	sorted := make([]model.Rule, len(rules))
	copy(sorted, rules)
	SortRules(sorted)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// split partitions sorted items by mask into two sorted slices.
func split(items []string, mask uint32) (in, out []string) {
	for i, item := range items {
		if mask&(1<<i) != 0 {
			in = append(in, item)
		} else {
			out = append(out, item)
		}
	}
	return in, out
}

func joinLabels(labels []string) string {
	return model.Itemset{Items: labels}.Label()
}
