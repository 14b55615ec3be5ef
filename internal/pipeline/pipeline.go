// Package pipeline runs the basket stages in order and reports the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/the-basket-must-flow/internal/basket"
	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/config"
	"github.com/Veraticus/the-basket-must-flow/internal/mining"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
	"github.com/Veraticus/the-basket-must-flow/internal/normalize"
	"github.com/Veraticus/the-basket-must-flow/internal/report"
	"github.com/Veraticus/the-basket-must-flow/internal/runlog"
	"github.com/Veraticus/the-basket-must-flow/internal/source"
)

// Stage names, in execution order.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageBuild     = "build"
	StageMine      = "mine"
	StageRules     = "rules"
	StagePublish   = "publish"
)

// Stages lists every stage a successful run goes through.
var Stages = []string{StageLoad, StageNormalize, StageBuild, StageMine, StageRules, StagePublish}

// Source supplies the raw records for one run.
type Source interface {
	Load(ctx context.Context) (*source.Batch, error)
}

// Observer is notified around every stage.
type Observer interface {
	StageStarted(name string)
	StageFinished(name string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) StageStarted(string)                        {}
func (nopObserver) StageFinished(string, time.Duration, error) {}

// Pipeline wires the stages together. A Pipeline is not safe for concurrent
// runs; callers serialize invocations.
type Pipeline struct {
	source     Source
	normalizer *normalize.Normalizer
	builder    *basket.Builder
	writer     *report.Writer
	log        *runlog.RunLog
	observer   Observer
	now        func() time.Time
	newID      func() string
	thresholds model.Thresholds
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver reports stage progress to obs.
func WithObserver(obs Observer) Option {
	return func(p *Pipeline) {
		if obs != nil {
			p.observer = obs
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunID replaces the run ID generator.
func WithRunID(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// New creates a pipeline. A nil log discards run log lines.
func New(src Source, builder *basket.Builder, writer *report.Writer, log *runlog.RunLog, th model.Thresholds, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     src,
		normalizer: normalize.New(),
		builder:    builder,
		writer:     writer,
		log:        log,
		observer:   nopObserver{},
		now:        time.Now,
		newID:      uuid.NewString,
		thresholds: th,
	}
	if p.log == nil {
		p.log = runlog.New(io.Discard)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one pipeline run. The returned report is never nil and has
// already been written to the summary file, unless writing it failed. A
// non-nil error means the run failed; ExitCode maps it to a process status.
func (p *Pipeline) Run(ctx context.Context) (*model.RunReport, error) {
	start := p.now()
	rep := &model.RunReport{
		RunID:      p.newID(),
		Timestamp:  start.UTC(),
		RunDate:    start.Format("2006-01-02"),
		Grouping:   p.builder.Grouping().Name(),
		Thresholds: p.thresholds,
		TopRules:   []model.Rule{},
		Stages:     []model.StageTiming{},
		Warnings:   []string{},
	}

	p.log.Info("Pipeline run started", "run_id", rep.RunID, "grouping", rep.Grouping)

	artifacts, err := p.execute(ctx, rep)
	if err == nil {
		err = p.publish(ctx, rep, start, artifacts)
	}
	if err != nil {
		return p.fail(rep, start, err)
	}

	p.log.Block(report.Text(rep))
	p.log.Info("Pipeline run succeeded", "run_id", rep.RunID, "rules", rep.RuleCount, "duration_ms", rep.DurationMS)
	return rep, nil
}

func (p *Pipeline) execute(ctx context.Context, rep *model.RunReport) (report.Artifacts, error) {
	th := p.thresholds
	if err := config.ValidateThresholds(th); err != nil {
		return report.Artifacts{}, err
	}

	var (
		batch   *source.Batch
		records []model.NormalizedRecord
		txns    []model.Transaction
		mined   *mining.MineResult
		rules   []model.Rule
	)

	err := p.stage(ctx, rep, StageLoad, func() (int, error) {
		var err error
		batch, err = p.source.Load(ctx)
		if err != nil {
			return 0, err
		}
		rep.Source = batch.Origin
		rep.InputRecordCount = len(batch.Records)
		if batch.Origin == source.OriginFallback {
			p.warn(rep, fmt.Sprintf("primary input missing, loaded fallback %s", batch.Path))
		}
		p.log.Info("Loaded raw records", "count", len(batch.Records), "path", batch.Path)
		return len(batch.Records), nil
	})
	if err != nil {
		return report.Artifacts{}, err
	}

	err = p.stage(ctx, rep, StageNormalize, func() (int, error) {
		res := p.normalizer.Normalize(batch.Records)
		records = res.Records
		rep.NormalizedRecordCount = len(res.Records)
		rep.SkippedRecordCount = res.Skipped
		if res.Skipped > 0 {
			p.warn(rep, fmt.Sprintf("%d of %d records skipped during normalization", res.Skipped, len(batch.Records)))
		}
		if len(res.Records) == 0 {
			return 0, common.NewInputError(common.ErrEmptyInput, "no usable records among %d raw records", len(batch.Records))
		}
		return len(res.Records), nil
	})
	if err != nil {
		return report.Artifacts{}, err
	}

	err = p.stage(ctx, rep, StageBuild, func() (int, error) {
		res := p.builder.Build(records)
		txns = res.Transactions
		rep.TransactionCount = len(txns)
		if res.Singletons > 0 {
			p.log.Info("Dropped single-item baskets", "count", res.Singletons)
		}
		if res.Collapsed > 0 {
			p.log.Info("Collapsed duplicate baskets", "count", res.Collapsed)
		}
		return len(txns), nil
	})
	if err != nil {
		return report.Artifacts{}, err
	}

	err = p.stage(ctx, rep, StageMine, func() (int, error) {
		var err error
		mined, err = p.mine(ctx, th.MinSupport, txns)
		if err != nil {
			return 0, err
		}
		rep.EffectiveMinSupport = th.MinSupport

		fallback := th.FallbackMinSupport
		if len(mined.Itemsets) == 0 && mined.Transactions > 0 && fallback > 0 && fallback < th.MinSupport {
			p.warn(rep, fmt.Sprintf("no frequent itemsets at min_support %g, retried at %g", th.MinSupport, fallback))
			mined, err = p.mine(ctx, fallback, txns)
			if err != nil {
				return 0, err
			}
			rep.EffectiveMinSupport = fallback
		}

		for _, w := range mined.Warnings {
			p.warn(rep, w)
		}
		rep.ItemsetCount = len(mined.Itemsets)
		return len(mined.Itemsets), nil
	})
	if err != nil {
		return report.Artifacts{}, err
	}

	var top []model.Rule
	err = p.stage(ctx, rep, StageRules, func() (int, error) {
		var err error
		rules, err = mining.GenerateRules(mined.Itemsets, mined.Supports, mining.RuleOptions{
			MinConfidence: th.MinConfidence,
			MinLift:       th.MinLift,
		})
		if err != nil {
			return 0, err
		}
		mining.SortRules(rules)
		top = mining.TopRules(rules, th.TopN)

		rep.RuleCount = len(rules)
		rep.TopRules = top
		rep.Insights = report.Summarize(rules, top)
		return len(rules), nil
	})
	if err != nil {
		return report.Artifacts{}, err
	}

	return report.Artifacts{
		Report:   rep,
		Rules:    rules,
		Itemsets: mined.Itemsets,
		TopRules: top,
	}, nil
}

func (p *Pipeline) mine(ctx context.Context, minSupport float64, txns []model.Transaction) (*mining.MineResult, error) {
	miner := mining.NewMiner(minSupport, p.thresholds.MaxItemsetSize).
		WithObserver(func(level, candidates, frequent int) {
			p.log.Info("Apriori level complete", "level", level, "candidates", candidates, "frequent", frequent)
		})
	return miner.Mine(ctx, txns)
}

func (p *Pipeline) publish(ctx context.Context, rep *model.RunReport, start time.Time, a report.Artifacts) error {
	return p.stage(ctx, rep, StagePublish, func() (int, error) {
		rep.Status = model.StatusSuccess
		rep.DurationMS = p.now().Sub(start).Milliseconds()
		paths, err := p.writer.WriteSuccess(a)
		if err != nil {
			return 0, err
		}
		for _, path := range paths {
			p.log.Info("Wrote artifact", "path", path)
		}
		return len(paths), nil
	})
}

// stage runs fn between observer notifications and records its timing.
func (p *Pipeline) stage(ctx context.Context, rep *model.RunReport, name string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.observer.StageStarted(name)
	began := p.now()
	out, err := fn()
	elapsed := p.now().Sub(began)
	p.observer.StageFinished(name, elapsed, err)
	if err != nil {
		return err
	}

	rep.Stages = append(rep.Stages, model.StageTiming{
		Name:       name,
		DurationMS: elapsed.Milliseconds(),
		Output:     out,
	})
	p.log.Info("Stage complete", "stage", name, "output", out, "duration_ms", elapsed.Milliseconds())
	return nil
}

func (p *Pipeline) warn(rep *model.RunReport, msg string) {
	rep.Warnings = append(rep.Warnings, msg)
	p.log.Warn(msg)
}

// fail turns rep into a failure report, writes the summary and logs the
// cause. Rule and itemset files from earlier runs are left untouched.
func (p *Pipeline) fail(rep *model.RunReport, start time.Time, err error) (*model.RunReport, error) {
	kind := common.KindOf(err)
	detail := err.Error()

	rep.Status = model.StatusFailure
	rep.ErrorKind = string(kind)
	rep.ErrorDetail = &detail
	rep.DurationMS = p.now().Sub(start).Milliseconds()

	if kind == common.KindMining {
		p.log.Error("Mining invariant violated, aborting", "run_id", rep.RunID)
		p.log.Block(detail)
	} else {
		p.log.Error("Pipeline run failed", "run_id", rep.RunID, "kind", string(kind), "error", detail)
	}

	path, werr := p.writer.WriteFailure(rep)
	if werr != nil {
		p.log.Error("Failed to write summary", "error", werr.Error())
		return rep, errors.Join(err, fmt.Errorf("failed to write summary: %w", werr))
	}
	p.log.Info("Wrote artifact", "path", path)
	return rep, err
}

// Reject records a run that could not be started, for example because its
// configuration is invalid. It writes the failure summary and log lines the
// same way a failed Run does and returns err.
func Reject(writer *report.Writer, log *runlog.RunLog, th model.Thresholds, err error, opts ...Option) (*model.RunReport, error) {
	p := New(nil, nil, writer, log, th, opts...)
	start := p.now()
	rep := &model.RunReport{
		RunID:      p.newID(),
		Timestamp:  start.UTC(),
		RunDate:    start.Format("2006-01-02"),
		Thresholds: th,
		TopRules:   []model.Rule{},
		Stages:     []model.StageTiming{},
		Warnings:   []string{},
	}
	p.log.Info("Pipeline run started", "run_id", rep.RunID)
	return p.fail(rep, start, err)
}
