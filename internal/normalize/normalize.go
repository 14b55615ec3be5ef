// Package normalize turns raw catalog entries into canonical records.
//
// Canonicalization order:
//  1. drop invalid UTF-8
//  2. NFKD decomposition and removal of combining marks, so "Café" becomes "cafe"
//  3. case folding
//  4. removal of everything but letters, digits and whitespace
//  5. whitespace collapsed to single spaces and trimmed
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Result is the output of one normalization pass.
type Result struct {
	Records []model.NormalizedRecord
	Skipped int
}

// Normalizer canonicalizes raw records. The zero value is ready to use.
type Normalizer struct{}

// New constructs a Normalizer.
func New() *Normalizer { return &Normalizer{} }

// Normalize canonicalizes every record. A record is skipped when its name is
// absent or canonicalizes to the empty string, so len(Records)+Skipped always
// equals len(raw).
func (n *Normalizer) Normalize(raw []model.RawRecord) Result {
	res := Result{Records: make([]model.NormalizedRecord, 0, len(raw))}

	for _, r := range raw {
		if r.Name == nil {
			res.Skipped++
			continue
		}
		name := Canonicalize(*r.Name)
		if name == "" {
			res.Skipped++
			continue
		}

		category := model.DefaultCategory
		if r.Category != nil {
			if c := Canonicalize(*r.Category); c != "" {
				category = c
			}
		}

		res.Records = append(res.Records, model.NormalizedRecord{
			ID:            r.ID,
			CanonicalName: name,
			Category:      category,
			Batch:         strings.TrimSpace(r.Batch),
		})
	}

	return res
}

// Canonicalize returns the canonical form of s.
func Canonicalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")

	// chains are stateful, so build one per call
	chain := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		cases.Fold(),
	)
	out, _, err := transform.String(chain, s)
	if err != nil {
		return ""
	}

	return strings.Join(strings.Fields(strings.Map(keepAlnumSpace, out)), " ")
}

// keepAlnumSpace maps whitespace to a plain space and drops everything that
// is not a letter or digit.
func keepAlnumSpace(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return r
	case unicode.IsSpace(r):
		return ' '
	default:
		return -1
	}
}
