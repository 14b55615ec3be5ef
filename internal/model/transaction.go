package model

import (
	"sort"
	"strings"
)

// Transaction is one basket of distinct item labels observed together.
// Items are kept sorted and free of duplicates.
type Transaction struct {
	Key   string // Grouping key the basket was built from
	Items []string
}

// NewTransaction builds a transaction from labels, dropping duplicates and
// empty labels and sorting the remainder.
func NewTransaction(key string, labels []string) Transaction {
	return Transaction{Key: key, Items: DistinctSorted(labels)}
}

// Len returns the number of distinct labels in the basket.
func (t Transaction) Len() int {
	return len(t.Items)
}

// Signature identifies the label set regardless of grouping key.
func (t Transaction) Signature() string {
	return ItemsetKey(t.Items)
}

// DistinctSorted returns the sorted set of non-empty labels.
func DistinctSorted(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// keySeparator cannot appear in a canonical label.
const keySeparator = "\x1f"

// ItemsetKey returns the map key for a sorted label set.
func ItemsetKey(sortedLabels []string) string {
	return strings.Join(sortedLabels, keySeparator)
}
