package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Groceries returns five baskets keyed b1..b5 by category, with names in
// mixed case so normalization has work to do.
//
//	b1: milk bread butter
//	b2: milk bread
//	b3: bread butter jam
//	b4: milk butter
//	b5: milk bread butter jam
func Groceries() []model.RawRecord {
	baskets := [][]string{
		{"Milk", "Bread", "Butter"},
		{"milk", "bread"},
		{"Bread", "Butter", "Jam"},
		{"MILK", "Butter"},
		{"Milk", "Bread", "Butter", "Jam"},
	}

	var out []model.RawRecord
	for b, names := range baskets {
		key := fmt.Sprintf("b%d", b+1)
		for i, name := range names {
			out = append(out, model.NewRawRecord(fmt.Sprintf("%s-%d", key, i), name, key))
		}
	}
	return out
}

// WriteProductsJSON writes records to path as a JSON array of products.
func WriteProductsJSON(t *testing.T, path string, records []model.RawRecord) {
	t.Helper()

	products := make([]map[string]any, 0, len(records))
	for _, r := range records {
		p := map[string]any{"id": r.ID}
		if r.Name != nil {
			p["name"] = *r.Name
		}
		if r.Category != nil {
			p["category"] = *r.Category
		}
		if r.Batch != "" {
			p["batch"] = r.Batch
		}
		products = append(products, p)
	}

	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode products: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create data directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write products: %v", err)
	}
}

// RunReport builds a minimal stored run.
func RunReport(id string, at time.Time, status model.Status) *model.RunReport {
	return &model.RunReport{
		RunID:            id,
		Timestamp:        at,
		RunDate:          at.Format("2006-01-02"),
		Status:           status,
		Grouping:         "category",
		TransactionCount: 5,
		RuleCount:        2,
		Thresholds:       model.DefaultThresholds(),
		Insights:         model.Insights{TopLift: 1.25, TopAssociation: "bread → jam"},
		TopRules:         []model.Rule{},
		Stages:           []model.StageTiming{},
		Warnings:         []string{},
	}
}
