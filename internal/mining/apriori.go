// Package mining finds frequent itemsets and association rules.
package mining

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// supportEpsilon absorbs float rounding when comparing against thresholds.
const supportEpsilon = 1e-12

// LevelObserver is told about each completed Apriori level.
type LevelObserver func(level, candidates, frequent int)

// Miner runs a level-wise Apriori search.
type Miner struct {
	observer   LevelObserver
	minSupport float64
	maxSize    int
}

// NewMiner creates a miner. maxSize caps itemset cardinality; zero means unbounded.
func NewMiner(minSupport float64, maxSize int) *Miner {
	return &Miner{minSupport: minSupport, maxSize: maxSize}
}

// WithObserver registers a callback invoked after every level.
func (m *Miner) WithObserver(obs LevelObserver) *Miner {
	m.observer = obs
	return m
}

// MineResult holds the frequent itemsets and the index of their supports.
type MineResult struct {
	Supports     SupportIndex
	Itemsets     []model.Itemset
	Warnings     []string
	Transactions int
	Levels       int
}

// SupportIndex maps an itemset key to the number of transactions holding it.
// Supports are derived from the counts so ratios of two supports stay exact.
type SupportIndex struct {
	counts map[string]int
	n      int
}

// NewSupportIndex returns an empty index over n transactions.
func NewSupportIndex(n int) SupportIndex {
	return SupportIndex{counts: make(map[string]int), n: n}
}

// Set records the count of the sorted label set.
func (s SupportIndex) Set(sortedLabels []string, count int) {
	s.counts[model.ItemsetKey(sortedLabels)] = count
}

// Count returns the count of the sorted label set.
func (s SupportIndex) Count(sortedLabels []string) (int, bool) {
	c, ok := s.counts[model.ItemsetKey(sortedLabels)]
	return c, ok
}

// Lookup returns the support of the sorted label set.
func (s SupportIndex) Lookup(sortedLabels []string) (float64, bool) {
	return s.byKey(model.ItemsetKey(sortedLabels))
}

// Transactions is the number of transactions the counts refer to.
func (s SupportIndex) Transactions() int { return s.n }

// Len is the number of indexed itemsets.
func (s SupportIndex) Len() int { return len(s.counts) }

func (s SupportIndex) byKey(key string) (float64, bool) {
	c, ok := s.counts[key]
	if !ok || s.n == 0 {
		return 0, false
	}
	return float64(c) / float64(s.n), true
}

// ValidateSupport checks that minSupport lies in (0, 1].
func ValidateSupport(minSupport float64) error {
	if math.IsNaN(minSupport) || minSupport <= 0 || minSupport > 1 {
		return common.NewThresholdError("min_support", "must be in (0, 1], got %v", minSupport)
	}
	return nil
}

// Mine returns every itemset whose support reaches the minimum. Empty
// transactions are ignored; when none remain the result is empty and carries
// a warning.
func (m *Miner) Mine(ctx context.Context, txns []model.Transaction) (*MineResult, error) {
	if err := ValidateSupport(m.minSupport); err != nil {
		return nil, err
	}
	if m.maxSize < 0 {
		return nil, common.NewThresholdError("max_itemset_size", "must be at least 0, got %d", m.maxSize)
	}

	enc := encode(txns)
	res := &MineResult{Supports: NewSupportIndex(len(enc.baskets)), Transactions: len(enc.baskets)}

	if len(enc.baskets) == 0 {
		res.Warnings = append(res.Warnings, "no transactions to mine")
		return res, nil
	}

	n := float64(len(enc.baskets))
	minCount := m.minSupport * n

	// level 1
	counts := make([]int, len(enc.labels))
	for _, b := range enc.baskets {
		for _, id := range b {
			counts[id]++
		}
	}
	var level [][]int
	for id, c := range counts {
		if float64(c) >= minCount-supportEpsilon*n {
			level = append(level, []int{id})
			res.add(enc, []int{id}, c, n)
		}
	}
	res.Levels = 1
	m.notify(1, len(enc.labels), len(level))

	for k := 2; len(level) > 1 && (m.maxSize == 0 || k <= m.maxSize); k++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("mining level %d: %w", k, err)
		}

		candidates := generateCandidates(level)
		if len(candidates) == 0 {
			break
		}

		candCounts := make([]int, len(candidates))
		for _, b := range enc.baskets {
			if len(b) < k {
				continue
			}
			for i, c := range candidates {
				if containsAll(b, c) {
					candCounts[i]++
				}
			}
		}

		var next [][]int
		for i, c := range candidates {
			if float64(candCounts[i]) >= minCount-supportEpsilon*n {
				next = append(next, c)
				res.add(enc, c, candCounts[i], n)
			}
		}

		m.notify(k, len(candidates), len(next))
		if len(next) == 0 {
			break
		}
		res.Levels = k
		level = next
	}

	SortItemsets(res.Itemsets)
	return res, nil
}

func (m *Miner) notify(level, candidates, frequent int) {
	if m.observer != nil {
		m.observer(level, candidates, frequent)
	}
}

func (r *MineResult) add(enc encoded, ids []int, count int, n float64) {
	items := enc.decode(ids)
	support := float64(count) / n
	r.Itemsets = append(r.Itemsets, model.Itemset{Items: items, Support: support, Count: count})
	r.Supports.Set(items, count)
}

// SortItemsets orders by size ascending, then support descending, then labels.
func SortItemsets(sets []model.Itemset) {
	sort.SliceStable(sets, func(i, j int) bool {
		a, b := sets[i], sets[j]
		if a.Size() != b.Size() {
			return a.Size() < b.Size()
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		return a.Key() < b.Key()
	})
}

// encoded holds transactions as sorted label ids. Ids follow label order, so
// sorted id slices decode to sorted label slices.
type encoded struct {
	labels  []string
	baskets [][]int
}

func encode(txns []model.Transaction) encoded {
	set := make(map[string]struct{})
	for _, t := range txns {
		for _, item := range t.Items {
			set[item] = struct{}{}
		}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	ids := make(map[string]int, len(labels))
	for i, l := range labels {
		ids[l] = i
	}

	enc := encoded{labels: labels}
	for _, t := range txns {
		distinct := model.DistinctSorted(t.Items)
		if len(distinct) == 0 {
			continue
		}
		b := make([]int, len(distinct))
		for i, item := range distinct {
			b[i] = ids[item]
		}
		enc.baskets = append(enc.baskets, b)
	}
	return enc
}

func (e encoded) decode(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = e.labels[id]
	}
	return out
}

// generateCandidates joins frequent k-itemsets sharing their first k-1 items
// and keeps only candidates whose every k-subset is frequent. level must be
// sorted lexicographically, which Mine guarantees by construction.
func generateCandidates(level [][]int) [][]int {
	frequent := make(map[string]struct{}, len(level))
	for _, s := range level {
		frequent[idKey(s)] = struct{}{}
	}

	var out [][]int
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			a, b := level[i], level[j]
			if !samePrefix(a, b) {
				break
			}
			cand := make([]int, len(a)+1)
			copy(cand, a)
			cand[len(a)] = b[len(b)-1]
			if allSubsetsFrequent(cand, frequent) {
				out = append(out, cand)
			}
		}
	}
	return out
}

func samePrefix(a, b []int) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allSubsetsFrequent(cand []int, frequent map[string]struct{}) bool {
	sub := make([]int, 0, len(cand)-1)
	for skip := range cand {
		sub = sub[:0]
		for i, id := range cand {
			if i != skip {
				sub = append(sub, id)
			}
		}
		if _, ok := frequent[idKey(sub)]; !ok {
			return false
		}
	}
	return true
}

// containsAll reports whether sorted basket b contains every id of sorted c.
func containsAll(b, c []int) bool {
	i := 0
	for _, id := range c {
		for i < len(b) && b[i] < id {
			i++
		}
		if i == len(b) || b[i] != id {
			return false
		}
		i++
	}
	return true
}

func idKey(ids []int) string {
	buf := make([]byte, 0, len(ids)*4)
	for _, id := range ids {
		buf = fmt.Appendf(buf, "%d,", id)
	}
	return string(buf)
}
