package model

// DefaultCategory is assigned to records whose category is absent or blank.
const DefaultCategory = "uncategorized"

// RawRecord is a product entry exactly as the catalog fetch delivered it.
// Name and Category are nil when the source omitted them.
type RawRecord struct {
	Name     *string           `json:"name"`
	Category *string           `json:"category"`
	Fields   map[string]string `json:"fields,omitempty"` // Free-text attributes not used for mining
	ID       string            `json:"id"`
	Batch    string            `json:"batch,omitempty"` // Fetch batch the entry arrived in, if known
}

// NewRawRecord builds a RawRecord with both name and category present.
func NewRawRecord(id, name, category string) RawRecord {
	return RawRecord{ID: id, Name: &name, Category: &category}
}

// NormalizedRecord is a RawRecord after canonicalization.
// CanonicalName is never empty.
type NormalizedRecord struct {
	ID            string
	CanonicalName string
	Category      string
	Batch         string
}
