package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Keys recognized for the product name, in order of preference.
var nameKeys = []string{"name", "display_name", "product_name", "description"}

// Keys recognized for the category, in order of preference.
var categoryKeys = []string{"category", "main_category"}

var idKeys = []string{"id", "code", "_id", "stockcode"}

var batchKeys = []string{"batch", "batch_id", "invoiceno", "invoice"}

// decodeJSON accepts either a top-level array of products or an object with
// a "products" array, as returned by catalog search endpoints.
func decodeJSON(r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, malformed("read json: %v", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, malformed("json input is empty")
	}

	var entries []map[string]any
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, malformed("decode json array: %v", err)
		}
	case '{':
		var envelope struct {
			Products []map[string]any `json:"products"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, malformed("decode json object: %v", err)
		}
		if envelope.Products == nil {
			return nil, malformed(`json object has no "products" array`)
		}
		entries = envelope.Products
	default:
		return nil, malformed("json input must be an array or an object")
	}

	records := make([]model.RawRecord, 0, len(entries))
	for i, e := range entries {
		if e == nil {
			return nil, malformed("entry %d is null", i)
		}
		records = append(records, recordFromMap(i, e))
	}
	return records, nil
}

func recordFromMap(i int, e map[string]any) model.RawRecord {
	used := map[string]bool{}
	pick := func(keys []string) (string, bool) {
		for _, k := range keys {
			v, ok := e[k]
			if !ok || v == nil {
				continue
			}
			used[k] = true
			return stringify(v), true
		}
		return "", false
	}

	rec := model.RawRecord{}
	if id, ok := pick(idKeys); ok {
		rec.ID = id
	} else {
		rec.ID = strconv.Itoa(i + 1)
	}
	if name, ok := pick(nameKeys); ok {
		rec.Name = &name
	}
	if cat, ok := pick(categoryKeys); ok {
		rec.Category = &cat
	}
	if batch, ok := pick(batchKeys); ok {
		rec.Batch = batch
	}

	keys := make([]string, 0, len(e))
	for k := range e {
		if !used[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if e[k] == nil {
			continue
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]string)
		}
		rec.Fields[k] = stringify(e[k])
	}
	return rec
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
