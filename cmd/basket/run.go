package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-basket-must-flow/internal/basket"
	"github.com/Veraticus/the-basket-must-flow/internal/cli"
	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/config"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
	"github.com/Veraticus/the-basket-must-flow/internal/pipeline"
	"github.com/Veraticus/the-basket-must-flow/internal/report"
	"github.com/Veraticus/the-basket-must-flow/internal/runlog"
	"github.com/Veraticus/the-basket-must-flow/internal/source"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the market basket pipeline once",
		Long: `Load the product snapshot, build transactions, mine frequent itemsets and
association rules, and publish the rules, itemsets, top rules and summary.

The last line written to stdout is PIPELINE_SUCCESS or PIPELINE_ERROR, and the
exit status is non-zero on failure, so schedulers can branch on either.`,
		RunE: runRun,
	}

	// Flags
	cmd.Flags().Float64("min-support", model.DefaultThresholds().MinSupport, "minimum itemset support in (0, 1]")
	cmd.Flags().Float64("min-confidence", model.DefaultThresholds().MinConfidence, "minimum rule confidence in [0, 1]")
	cmd.Flags().Float64("min-lift", model.DefaultThresholds().MinLift, "minimum rule lift (0 disables)")
	cmd.Flags().Int("top-n", model.DefaultThresholds().TopN, "number of rules in the top rules file")
	cmd.Flags().Bool("progress", false, "show a progress bar while the stages run")

	_ = viper.BindPFlag("mining.min_support", cmd.Flags().Lookup("min-support"))
	_ = viper.BindPFlag("mining.min_confidence", cmd.Flags().Lookup("min-confidence"))
	_ = viper.BindPFlag("mining.min_lift", cmd.Flags().Lookup("min-lift"))
	_ = viper.BindPFlag("mining.top_n", cmd.Flags().Lookup("top-n"))

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	showProgress, _ := cmd.Flags().GetBool("progress")

	settings, cfgErr := config.Load(viper.GetViper())

	var observer pipeline.Observer
	if showProgress {
		observer = cli.NewStageProgress(os.Stderr, len(pipeline.Stages))
	}

	rep, err := runPipeline(ctx, settings, cfgErr, observer)
	if rep != nil {
		fmt.Fprintln(out, cli.RenderRunReport(rep))
		recordRun(ctx, settings, rep)
	} else if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(err.Error()))
	}

	fmt.Fprintln(out, pipeline.Marker(err))
	if err == nil {
		return nil
	}
	code := pipeline.ExitCode(err)
	if rep == nil && cfgErr != nil {
		code = pipeline.ExitInvalid
	}
	return &exitError{err: err, code: code}
}

// runPipeline executes one run with settings. A configuration error that
// only concerns thresholds or grouping still produces a failure summary.
func runPipeline(ctx context.Context, settings config.Settings, cfgErr error, observer pipeline.Observer) (*model.RunReport, error) {
	if cfgErr != nil && common.KindOf(cfgErr) != common.KindThreshold {
		return nil, cfgErr
	}

	writer := report.NewWriter(settings.OutputDir())

	log, err := runlog.Open(settings.LogPath())
	if err != nil {
		// The summary is still owed; log lines go to stderr instead.
		return pipeline.Reject(writer, runlog.New(os.Stderr), settings.Mining, errors.Join(cfgErr, err))
	}
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			slog.Warn("Failed to close run log", "error", closeErr)
		}
	}()

	if cfgErr != nil {
		return pipeline.Reject(writer, log, settings.Mining, cfgErr)
	}

	grouping, err := basket.GroupingFor(settings.Basket.Grouping)
	if err != nil {
		return pipeline.Reject(writer, log, settings.Mining, err)
	}
	builder := basket.NewBuilder(grouping, basket.Options{
		CollapseDuplicates: settings.Basket.CollapseDuplicates,
		DropSingletons:     settings.Basket.DropSingletons,
	})

	src := source.NewFileLoader(settings.InputPath(), settings.FallbackPath())
	p := pipeline.New(src, builder, writer, log, settings.Mining, pipeline.WithObserver(observer))
	return p.Run(ctx)
}

// recordRun stores rep in the history database. Failures are only logged;
// they never change the outcome of the run.
func recordRun(ctx context.Context, settings config.Settings, rep *model.RunReport) {
	if !settings.Database.Enabled {
		return
	}

	// The run context may already be canceled; the record is still wanted.
	ctx = context.WithoutCancel(ctx)
	store, err := initStorage(ctx, settings)
	if err != nil {
		common.LogWarn("Failed to open run history", common.Fields{"error": err.Error()})
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveRun(ctx, rep); err != nil {
		common.LogWarn("Failed to record run", common.Fields{"run_id": rep.RunID, "error": err.Error()})
	}
}

func printJSON(out io.Writer, rep *model.RunReport) error {
	data, err := report.MarshalSummary(rep)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
