package model

import "strings"

// LabelJoiner separates labels in report files.
const LabelJoiner = ", "

// Itemset is a set of labels together with the fraction of transactions
// containing all of them.
type Itemset struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
	Count   int      `json:"count"`
}

// Size returns the cardinality of the itemset.
func (s Itemset) Size() int {
	return len(s.Items)
}

// Key returns the unique key of the label set.
func (s Itemset) Key() string {
	return ItemsetKey(s.Items)
}

// Label joins the items for display.
func (s Itemset) Label() string {
	return strings.Join(s.Items, LabelJoiner)
}
