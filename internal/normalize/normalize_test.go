package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

func strPtr(s string) *string { return &s }

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "CHIPS", want: "chips"},
		{name: "strips punctuation", input: "Coca-Cola (330ml)!", want: "cocacola 330ml"},
		{name: "collapses whitespace", input: "  whole \t wheat\n bread ", want: "whole wheat bread"},
		{name: "folds accents", input: "Café Crème", want: "cafe creme"},
		{name: "keeps non latin letters", input: "Молоко 1L", want: "молоко 1l"},
		{name: "only symbols", input: "!!! --- ???", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "invalid utf8", input: "so\xffda", want: "soda"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.input))
		})
	}
}

func TestNormalize(t *testing.T) {
	raw := []model.RawRecord{
		model.NewRawRecord("1", "Chips", "Snacks"),
		{ID: "2", Name: strPtr("Soda")},
		{ID: "3", Name: nil, Category: strPtr("snacks")},
		model.NewRawRecord("4", "***", "snacks"),
		{ID: "5", Name: strPtr("Milk"), Category: strPtr("   "), Batch: " b1 "},
	}

	res := New().Normalize(raw)

	require.Len(t, res.Records, 3)
	assert.Equal(t, 2, res.Skipped)

	assert.Equal(t, model.NormalizedRecord{ID: "1", CanonicalName: "chips", Category: "snacks"}, res.Records[0])
	assert.Equal(t, model.DefaultCategory, res.Records[1].Category)
	assert.Equal(t, model.DefaultCategory, res.Records[2].Category)
	assert.Equal(t, "b1", res.Records[2].Batch)
}

func TestNormalize_Conservation(t *testing.T) {
	inputs := [][]model.RawRecord{
		nil,
		{},
		{{ID: "a"}},
		{model.NewRawRecord("a", "x", "y"), {ID: "b", Name: strPtr("")}, model.NewRawRecord("c", "?", "")},
	}

	n := New()
	for _, raw := range inputs {
		res := n.Normalize(raw)
		assert.Equal(t, len(raw), len(res.Records)+res.Skipped)
		for _, r := range res.Records {
			assert.NotEmpty(t, r.CanonicalName)
			assert.NotEmpty(t, r.Category)
		}
	}
}
