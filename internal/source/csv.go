package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// decodeCSV reads a headered CSV. Two layouts are understood: one product per
// row (columns resolved like JSON keys), and the pair layout with columns
// product_a, product_b and category, which yields two records per row that
// share the row number as their batch.
func decodeCSV(r io.Reader) ([]model.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, malformed("csv input has no header")
	}
	if err != nil {
		return nil, malformed("read csv header: %v", err)
	}
	for i, h := range header {
		header[i] = headerKey(h)
	}

	pairs := hasColumns(header, "product_a", "product_b")

	var records []model.RawRecord
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("read csv row %d: %v", row, err)
		}

		entry := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(fields) && h != "" && strings.TrimSpace(fields[i]) != "" {
				entry[h] = fields[i]
			}
		}

		if pairs {
			records = append(records, pairRecords(row, entry)...)
			continue
		}
		records = append(records, recordFromMap(row-1, entry))
	}

	return records, nil
}

func pairRecords(row int, entry map[string]any) []model.RawRecord {
	out := make([]model.RawRecord, 0, 2)
	for _, side := range []string{"a", "b"} {
		e := make(map[string]any, len(entry))
		for k, v := range entry {
			if k != "product_a" && k != "product_b" {
				e[k] = v
			}
		}
		e["id"] = fmt.Sprintf("%d%s", row, side)
		e["batch"] = fmt.Sprintf("row-%d", row)
		delete(e, "name")
		if v, ok := entry["product_"+side]; ok {
			e["name"] = v
		}
		out = append(out, recordFromMap(row-1, e))
	}
	return out
}

func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func hasColumns(header []string, cols ...string) bool {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, c := range cols {
		if !present[c] {
			return false
		}
	}
	return true
}
