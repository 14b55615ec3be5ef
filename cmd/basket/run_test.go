package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/config"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
	"github.com/Veraticus/the-basket-must-flow/internal/pipeline"
	"github.com/Veraticus/the-basket-must-flow/internal/report"
	"github.com/Veraticus/the-basket-must-flow/internal/source"
	"github.com/Veraticus/the-basket-must-flow/internal/storage"
	"github.com/Veraticus/the-basket-must-flow/internal/testutil"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	root := t.TempDir()

	s := config.Default()
	s.Paths.DataDir = filepath.Join(root, "data")
	s.Paths.OutputDir = filepath.Join(root, "output")
	s.Database.Path = filepath.Join(root, "db", "basket.db")
	s.Mining.MinSupport = 0.3
	return s
}

func writeProducts(t *testing.T, s config.Settings, products []map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(s.Paths.DataDir, 0750))
	data, err := json.Marshal(products)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.InputPath(), data, 0600))
}

func snackProducts() []map[string]string {
	return []map[string]string{
		{"id": "1", "name": "Chips", "category": "Snacks"},
		{"id": "2", "name": "Salsa", "category": "Snacks"},
		{"id": "3", "name": "Chips", "category": "Party"},
		{"id": "4", "name": "Salsa", "category": "Party"},
		{"id": "5", "name": "Soda", "category": "Party"},
		{"id": "6", "name": "Soda", "category": "Drinks"},
		{"id": "7", "name": "Juice", "category": "Drinks"},
	}
}

func TestRunPipeline_Success(t *testing.T) {
	s := testSettings(t)
	writeProducts(t, s, snackProducts())

	rep, err := runPipeline(context.Background(), s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, rep.Status)
	assert.Equal(t, 3, rep.TransactionCount)
	assert.Positive(t, rep.RuleCount)

	for _, name := range []string{report.RulesFile, report.ItemsetsFile, report.TopRulesFile, report.SummaryFile} {
		assert.FileExists(t, filepath.Join(s.OutputDir(), name))
	}
	assert.FileExists(t, s.LogPath())
}

func TestRunPipeline_Groceries(t *testing.T) {
	s := testSettings(t)
	s.Mining.MinSupport = 0.4
	testutil.WriteProductsJSON(t, s.InputPath(), testutil.Groceries())

	rep, err := runPipeline(context.Background(), s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.TransactionCount)
	assert.Equal(t, source.OriginPrimary, rep.Source)
	assert.Contains(t, rep.Insights.TopAssociation, "jam")
}

func TestRunPipeline_Fallback(t *testing.T) {
	s := testSettings(t)
	s.Paths.FallbackFile = "previous.json"
	testutil.WriteProductsJSON(t, s.FallbackPath(), testutil.Groceries())

	rep, err := runPipeline(context.Background(), s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, source.OriginFallback, rep.Source)
	require.NotEmpty(t, rep.Warnings)
	assert.Contains(t, rep.Warnings[0], "fallback")
}

func TestRunPipeline_MissingInput(t *testing.T) {
	s := testSettings(t)

	rep, err := runPipeline(context.Background(), s, nil, nil)
	require.ErrorIs(t, err, common.ErrInputNotFound)
	assert.Equal(t, pipeline.ExitInvalid, pipeline.ExitCode(err))
	assert.Equal(t, model.StatusFailure, rep.Status)
	assert.FileExists(t, filepath.Join(s.OutputDir(), report.SummaryFile))
}

func TestRunPipeline_ThresholdConfigErrorWritesSummary(t *testing.T) {
	s := testSettings(t)
	s.Mining.MinSupport = 0
	cfgErr := s.Validate()
	require.Error(t, cfgErr)

	rep, err := runPipeline(context.Background(), s, cfgErr, nil)
	require.Error(t, err)
	assert.Equal(t, common.KindThreshold, common.KindOf(err))
	assert.Equal(t, model.StatusFailure, rep.Status)

	summary, err := report.ReadSummary(filepath.Join(s.OutputDir(), report.SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, summary.Error(), "min_support")
}

func TestRunPipeline_OtherConfigErrorIsReturned(t *testing.T) {
	s := testSettings(t)
	cfgErr := errors.New("bad yaml")

	rep, err := runPipeline(context.Background(), s, cfgErr, nil)
	assert.Nil(t, rep)
	assert.Equal(t, cfgErr, err)
	assert.NoFileExists(t, filepath.Join(s.OutputDir(), report.SummaryFile))
}

func TestRunPipeline_LogUnavailableStillWritesSummary(t *testing.T) {
	s := testSettings(t)
	writeProducts(t, s, snackProducts())
	require.NoError(t, os.MkdirAll(s.OutputDir(), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(s.OutputDir(), "blocker"), nil, 0600))
	s.Paths.LogFile = filepath.Join("blocker", "pipeline_log.txt")

	rep, err := runPipeline(context.Background(), s, nil, nil)
	require.Error(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, model.StatusFailure, rep.Status)
	assert.Equal(t, pipeline.ExitIO, pipeline.ExitCode(err))
	assert.Equal(t, pipeline.ErrorMarker, pipeline.Marker(err))

	summary, err := report.ReadSummary(filepath.Join(s.OutputDir(), report.SummaryFile))
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailure, summary.Status)
	assert.Contains(t, summary.Error(), "log directory")
}

func TestRecordRunAndHistory(t *testing.T) {
	s := testSettings(t)
	writeProducts(t, s, snackProducts())
	ctx := context.Background()

	rep, err := runPipeline(ctx, s, nil, nil)
	require.NoError(t, err)
	recordRun(ctx, s, rep)

	store, err := initStorage(ctx, s)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var list bytes.Buffer
	require.NoError(t, listRuns(ctx, store, 10, &list))
	assert.Contains(t, list.String(), rep.RunID[:8])

	var shown bytes.Buffer
	require.NoError(t, showRun(ctx, store, rep.RunID[:8], &shown))
	var decoded model.RunReport
	require.NoError(t, json.Unmarshal(shown.Bytes(), &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Equal(t, rep.RuleCount, decoded.RuleCount)

	err = showRun(ctx, store, "does-not-exist", &shown)
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}

func TestRecordRun_DatabaseDisabled(t *testing.T) {
	s := testSettings(t)
	s.Database.Enabled = false

	recordRun(context.Background(), s, &model.RunReport{RunID: "x"})
	assert.NoFileExists(t, s.DatabasePath())

	_, err := initStorage(context.Background(), s)
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestWriteSettings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSettings(&buf, config.Default()))

	out := buf.String()
	assert.Contains(t, out, "mining:")
	assert.Contains(t, out, "min_support: 0.01")
	assert.Contains(t, out, "grouping: category")
	assert.Contains(t, out, "input_file: raw_products.json")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(&exitError{err: errors.New("bug"), code: 2}))
	assert.Equal(t, 1, exitCode(errors.New("usage")))
}
