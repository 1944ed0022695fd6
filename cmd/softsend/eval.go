package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/roomnote/softsend/fixture"
)

func evalCmd(opts *rootOptions) *cobra.Command {
	var (
		fixturesGlob   string
		outputsPath    string
		reportPath     string
		datasetVersion string
		watch          bool
		noGate         bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Replay rewrite outputs against regression fixtures",
		Long: `Eval loads fixtures matching a glob, replays an outputs file against
them through the safety lexicon, and writes an NDJSON report line per
evaluated case.

By default the command exits non-zero when any evaluated case misses its
expected violations; --no-gate reports without failing. With --watch, the
replay reruns whenever the fixtures or the outputs file change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(opts); err != nil {
				return err
			}
			if fixturesGlob == "" {
				return fmt.Errorf("--fixtures is required")
			}

			if watch {
				if outputsPath == "" || outputsPath == "-" {
					return fmt.Errorf("--watch needs a file path for --outputs")
				}
				return watchEval(fixturesGlob, outputsPath, reportPath, datasetVersion)
			}

			sum, err := runEval(fixturesGlob, outputsPath, reportPath, datasetVersion)
			if err != nil {
				return err
			}
			if noGate {
				return nil
			}
			return checkGate(sum)
		},
	}

	cmd.Flags().StringVar(&fixturesGlob, "fixtures", "", "Fixture glob, doublestar patterns allowed (required)")
	cmd.Flags().StringVar(&outputsPath, "outputs", "-", "Rewrite outputs NDJSON (- for stdin)")
	cmd.Flags().StringVar(&reportPath, "report", "-", "Report NDJSON destination (- for stdout)")
	cmd.Flags().StringVar(&datasetVersion, "dataset-version", "", "Dataset version stamped into every report line")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rerun on fixture or output changes")
	cmd.Flags().BoolVar(&noGate, "no-gate", false, "Report without failing on missed expectations")

	return cmd
}

func runEval(fixturesGlob, outputsPath, reportPath, datasetVersion string) (fixture.Summary, error) {
	set, err := fixture.Load(fixturesGlob)
	if err != nil {
		return fixture.Summary{}, err
	}

	in, closeIn, err := openInput(outputsPath)
	if err != nil {
		return fixture.Summary{}, err
	}
	defer closeIn()

	runner := fixture.NewRunner(fixture.WithDatasetVersion(datasetVersion))
	outputs, skippedLines := runner.ReadOutputs(in)

	report, closeReport, err := createOutput(reportPath)
	if err != nil {
		return fixture.Summary{}, err
	}
	defer closeReport()

	sum, err := runner.Run(set, outputs, report)
	if err != nil {
		return sum, err
	}
	sum.Skipped = skippedLines

	slog.Info("replay complete",
		"fixtures", set.Len(),
		"evaluated", sum.Evaluated,
		"matched", sum.Matched,
		"unknown", sum.Unknown,
		"skipped", sum.Skipped)
	return sum, nil
}

func checkGate(sum fixture.Summary) error {
	if sum.Evaluated == 0 {
		return fmt.Errorf("no cases evaluated")
	}
	if sum.Matched < sum.Evaluated {
		return fmt.Errorf("regression gate failed: %d of %d cases matched expectations", sum.Matched, sum.Evaluated)
	}
	return nil
}

// watchEval reruns the replay on every debounced change batch. Gate
// failures are logged rather than fatal; the loop only ends on signal.
func watchEval(fixturesGlob, outputsPath, reportPath, datasetVersion string) error {
	base, _ := doublestar.SplitPattern(fixturesGlob)

	watcher, err := fixture.NewWatcher(fixture.WatcherConfig{
		Paths: []string{base, outputsPath},
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := watcher.Start(signalCtx); err != nil {
		return err
	}
	defer watcher.Stop()

	rerun := func() {
		sum, err := runEval(fixturesGlob, outputsPath, reportPath, datasetVersion)
		if err != nil {
			slog.Error("replay failed", "error", err)
			return
		}
		if err := checkGate(sum); err != nil {
			slog.Warn("regression gate", "status", err.Error())
		}
	}

	rerun()
	for {
		select {
		case <-signalCtx.Done():
			slog.Info("watch stopped")
			return nil
		case batch, ok := <-watcher.Changes():
			if !ok {
				return nil
			}
			slog.Info("change detected, rerunning", "paths", len(batch))
			rerun()
		}
	}
}
