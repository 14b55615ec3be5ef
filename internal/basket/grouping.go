// Package basket builds market-basket transactions from normalized records.
package basket

import (
	"fmt"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/config"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Group is a candidate basket before de-duplication of its labels.
type Group struct {
	Key    string
	Labels []string
}

// Grouping decides which records co-occur in a basket. Implementations must
// be deterministic: the same records in the same order yield the same groups.
type Grouping interface {
	Name() string
	Group(records []model.NormalizedRecord) []Group
}

// GroupingFor returns the strategy registered under name.
func GroupingFor(name string) (Grouping, error) {
	switch name {
	case config.GroupingCategory, "":
		return ByCategory{}, nil
	case config.GroupingRecord:
		return PerRecord{}, nil
	case config.GroupingBatch:
		return ByBatch{}, nil
	case config.GroupingPairs:
		return CategoryPairs{}, nil
	default:
		return nil, common.NewThresholdError("basket.grouping", "unknown grouping %q", name)
	}
}

// ByCategory puts every record of a category into one basket.
type ByCategory struct{}

// Name implements Grouping.
func (ByCategory) Name() string { return config.GroupingCategory }

// Group implements Grouping.
func (ByCategory) Group(records []model.NormalizedRecord) []Group {
	return groupBy(records, byCategory)
}

// PerRecord makes each record its own single-item basket.
type PerRecord struct{}

// Name implements Grouping.
func (PerRecord) Name() string { return config.GroupingRecord }

// Group implements Grouping.
func (PerRecord) Group(records []model.NormalizedRecord) []Group {
	groups := make([]Group, 0, len(records))
	for i, r := range records {
		key := r.ID
		if key == "" {
			key = fmt.Sprintf("#%d", i)
		}
		groups = append(groups, Group{Key: key, Labels: []string{r.CanonicalName}})
	}
	return groups
}

// ByBatch groups records that arrived in the same fetch batch. Records without
// a batch form their own basket.
type ByBatch struct{}

// Name implements Grouping.
func (ByBatch) Name() string { return config.GroupingBatch }

// Group implements Grouping.
func (ByBatch) Group(records []model.NormalizedRecord) []Group {
	return groupBy(records, func(i int, r model.NormalizedRecord) string {
		if r.Batch != "" {
			return "batch:" + r.Batch
		}
		if r.ID != "" {
			return "record:" + r.ID
		}
		return fmt.Sprintf("record:#%d", i)
	})
}

// CategoryPairs synthesizes two-item baskets inside each category: the
// distinct products p0..pn are paired as (p0,p1), (p0,p2), (p2,p3), (p2,p4)...
// Categories with fewer than two distinct products produce no baskets.
type CategoryPairs struct{}

// Name implements Grouping.
func (CategoryPairs) Name() string { return config.GroupingPairs }

// Group implements Grouping.
func (CategoryPairs) Group(records []model.NormalizedRecord) []Group {
	var groups []Group
	for _, cat := range groupBy(records, byCategory) {
		products := distinctInOrder(cat.Labels)
		if len(products) < 2 {
			continue
		}
		n := 0
		for i := 0; i < len(products)-1; i += 2 {
			groups = append(groups, Group{Key: fmt.Sprintf("%s#%d", cat.Key, n), Labels: []string{products[i], products[i+1]}})
			n++
			if i+2 < len(products) {
				groups = append(groups, Group{Key: fmt.Sprintf("%s#%d", cat.Key, n), Labels: []string{products[i], products[i+2]}})
				n++
			}
		}
	}
	return groups
}

// groupBy collects canonical names by key, keeping keys in order of first appearance.
func groupBy(records []model.NormalizedRecord, key func(int, model.NormalizedRecord) string) []Group {
	index := make(map[string]int)
	var groups []Group
	for n, r := range records {
		k := key(n, r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Labels = append(groups[i].Labels, r.CanonicalName)
	}
	return groups
}

func byCategory(_ int, r model.NormalizedRecord) string { return r.Category }

func distinctInOrder(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
