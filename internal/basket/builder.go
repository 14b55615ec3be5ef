package basket

import (
	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Options tunes transaction construction.
type Options struct {
	// CollapseDuplicates merges groups whose label sets are identical.
	CollapseDuplicates bool
	// DropSingletons discards baskets holding a single label.
	DropSingletons bool
}

// Result is the output of Build together with what was discarded.
type Result struct {
	Transactions []model.Transaction
	Empty        int
	Singletons   int
	Collapsed    int
}

// Builder turns normalized records into transactions using a Grouping.
type Builder struct {
	grouping Grouping
	opts     Options
}

// NewBuilder creates a builder. A nil grouping falls back to ByCategory.
func NewBuilder(grouping Grouping, opts Options) *Builder {
	if grouping == nil {
		grouping = ByCategory{}
	}
	return &Builder{grouping: grouping, opts: opts}
}

// Grouping returns the strategy in use.
func (b *Builder) Grouping() Grouping {
	return b.grouping
}

// Build produces one transaction per group. Empty baskets are never emitted.
func (b *Builder) Build(records []model.NormalizedRecord) Result {
	groups := b.grouping.Group(records)

	res := Result{Transactions: make([]model.Transaction, 0, len(groups))}
	seen := make(map[string]struct{})

	for _, g := range groups {
		txn := model.NewTransaction(g.Key, g.Labels)
		switch {
		case txn.Len() == 0:
			res.Empty++
			continue
		case txn.Len() == 1 && b.opts.DropSingletons:
			res.Singletons++
			continue
		}

		if b.opts.CollapseDuplicates {
			sig := txn.Signature()
			if _, dup := seen[sig]; dup {
				res.Collapsed++
				continue
			}
			seen[sig] = struct{}{}
		}

		res.Transactions = append(res.Transactions, txn)
	}

	return res
}
