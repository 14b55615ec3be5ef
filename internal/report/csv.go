package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Column headers of the CSV artifacts.
var (
	RuleHeader    = []string{"antecedents", "consequents", "support", "confidence", "lift"}
	ItemsetHeader = []string{"itemsets", "support", "size"}
)

// WriteRulesCSV writes one row per rule in the given order.
func WriteRulesCSV(w io.Writer, rules []model.Rule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RuleHeader); err != nil {
		return err
	}
	for _, r := range rules {
		row := []string{
			r.AntecedentLabel(),
			r.ConsequentLabel(),
			formatFloat(r.Support),
			formatFloat(r.Confidence),
			formatFloat(r.Lift),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteItemsetsCSV writes one row per itemset in the given order.
func WriteItemsetsCSV(w io.Writer, sets []model.Itemset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ItemsetHeader); err != nil {
		return err
	}
	for _, s := range sets {
		if err := cw.Write([]string{s.Label(), formatFloat(s.Support), strconv.Itoa(s.Size())}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatFloat uses the shortest exact representation so identical values
// always produce identical bytes.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
