package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDecodeJSON_Array(t *testing.T) {
	input := `[
		{"name": "Chips", "category": "Snacks", "brand": "Crunchy"},
		{"id": 42, "product_name": "Soda", "category": null},
		{"category": "snacks"},
		{"name": null, "category": "snacks", "batch": "b1"}
	]`

	records, err := Decode(strings.NewReader(input), FormatJSON)
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.NotNil(t, records[0].Name)
	assert.Equal(t, "Chips", *records[0].Name)
	assert.Equal(t, "Snacks", *records[0].Category)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, map[string]string{"brand": "Crunchy"}, records[0].Fields)

	assert.Equal(t, "42", records[1].ID)
	assert.Equal(t, "Soda", *records[1].Name)
	assert.Nil(t, records[1].Category)

	assert.Nil(t, records[2].Name)
	assert.Nil(t, records[3].Name)
	assert.Equal(t, "b1", records[3].Batch)
}

func TestDecodeJSON_ProductsEnvelope(t *testing.T) {
	input := `{"count": 2, "products": [{"code": "301", "product_name": "Nutella"}, {"code": "302", "product_name": "Bread"}]}`

	records, err := Decode(strings.NewReader(input), FormatJSON)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "301", records[0].ID)
	assert.Equal(t, "Bread", *records[1].Name)
}

func TestDecodeJSON_EmptyArray(t *testing.T) {
	records, err := Decode(strings.NewReader(`[]`), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeJSON_Malformed(t *testing.T) {
	for _, input := range []string{``, `{`, `"chips"`, `{"items": []}`, `[1, 2]`, `[null]`} {
		_, err := Decode(strings.NewReader(input), FormatJSON)
		require.Error(t, err, "input %q", input)
		assert.Equal(t, common.KindInput, common.KindOf(err))
		assert.ErrorIs(t, err, common.ErrMalformedInput)
	}
}

func TestDecodeCSV_OnePerRow(t *testing.T) {
	input := "ID,Name,Category,Batch,Notes\n1,Chips,Snacks,b1,salty\n2,Soda,,b1,\n3,,Snacks,b2,\n"

	records, err := Decode(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Chips", *records[0].Name)
	assert.Equal(t, "b1", records[0].Batch)
	assert.Equal(t, map[string]string{"notes": "salty"}, records[0].Fields)
	assert.Nil(t, records[1].Category)
	assert.Nil(t, records[2].Name)
}

func TestDecodeCSV_PairLayout(t *testing.T) {
	input := "product_a,product_b,category\nChips,Soda,Snacks\nMilk,Butter,Dairy\n"

	records, err := Decode(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "1a", records[0].ID)
	assert.Equal(t, "Chips", *records[0].Name)
	assert.Equal(t, "Soda", *records[1].Name)
	assert.Equal(t, "row-1", records[1].Batch)
	assert.Equal(t, "Dairy", *records[3].Category)
}

func TestDecodeCSV_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader(""), FormatCSV)
	require.ErrorIs(t, err, common.ErrMalformedInput)

	_, err = Decode(strings.NewReader("name\n\"unterminated\n"), FormatCSV)
	require.ErrorIs(t, err, common.ErrMalformedInput)

	_, err = Decode(strings.NewReader("x"), Format("xml"))
	require.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "raw_products.json")
	fallback := writeFile(t, dir, "Reviews.csv", "name,category\nCandle,Home\n")

	batch, err := NewFileLoader(primary, fallback).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OriginFallback, batch.Origin)
	assert.Equal(t, fallback, batch.Path)
	require.Len(t, batch.Records, 1)

	writeFile(t, dir, "raw_products.json", `[{"name": "Chips"}]`)
	batch, err = NewFileLoader(primary, fallback).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OriginPrimary, batch.Origin)

	_, err = NewFileLoader(filepath.Join(dir, "missing.json"), "").Load(context.Background())
	require.ErrorIs(t, err, common.ErrInputNotFound)
	assert.Equal(t, common.KindInput, common.KindOf(err))
}

func TestFileLoader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileLoader("x.json", "").Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
