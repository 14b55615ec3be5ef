package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

func successReport() *model.RunReport {
	return &model.RunReport{
		RunID:            "0f8c2b1e-6a4d-4c55-9f1e-3f5a8d2c7b10",
		RunDate:          "2026-03-01",
		Timestamp:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:           model.StatusSuccess,
		Source:           "fallback",
		InputRecordCount: 12,
		TransactionCount: 4,
		ItemsetCount:     7,
		RuleCount:        3,
		Thresholds:       model.DefaultThresholds(),
		Insights: model.Insights{
			TopAssociation: "bread → butter",
			TopLift:        2.5,
			AvgLiftTopN:    1.75,
			MaxConfidence:  0.8,
		},
		Warnings: []string{"3 duplicate transactions"},
	}
}

func TestRenderRunReport(t *testing.T) {
	out := RenderRunReport(successReport())

	assert.Contains(t, out, "Market Basket Analysis")
	assert.Contains(t, out, "2026-03-01")
	assert.Contains(t, out, "bread → butter")
	assert.Contains(t, out, "2.50x")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "3 duplicate transactions")
	assert.Contains(t, out, FolderIcon+" fallback input")
	assert.Contains(t, out, SuccessIcon+" success")
	assert.Contains(t, out, WarningIcon)
}

func TestRenderRunReport_Failure(t *testing.T) {
	detail := "input validation error: empty input: no records"
	r := &model.RunReport{
		RunDate:     "2026-03-01",
		Status:      model.StatusFailure,
		ErrorKind:   "input_validation",
		ErrorDetail: &detail,
	}

	out := RenderRunReport(r)
	assert.Contains(t, out, ErrorIcon+" failure (input_validation)")
	assert.NotContains(t, out, "Source:")
	assert.Contains(t, out, "no records")
	assert.NotContains(t, out, "Rules discovered")
}

func TestRenderRunReport_Nil(t *testing.T) {
	assert.Empty(t, RenderRunReport(nil))
}

func TestRenderHistory(t *testing.T) {
	empty := RenderHistory(nil)
	assert.Contains(t, empty, InfoIcon+" No runs recorded yet")
	assert.NotContains(t, empty, BasketIcon)

	out := RenderHistory([]*model.RunReport{successReport()})
	assert.Contains(t, out, BasketIcon+" Run history")
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "0f8c2b1e")
	assert.NotContains(t, out, "0f8c2b1e-6a4d")
	assert.Contains(t, out, "2.50")
}

func TestStageProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewStageProgress(&buf, 2)

	p.StageStarted("load")
	p.StageFinished("load", time.Millisecond, nil)
	p.StageStarted("mine")
	p.StageFinished("mine", time.Millisecond, errors.New("boom"))

	assert.Contains(t, buf.String(), "1/2")
}
