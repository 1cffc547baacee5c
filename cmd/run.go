package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/peekknuf/dqsweep/internal/connectors"
	"github.com/peekknuf/dqsweep/internal/dataset"
	"github.com/peekknuf/dqsweep/internal/generator"
	"github.com/peekknuf/dqsweep/internal/journal"
	"github.com/peekknuf/dqsweep/internal/metric"
	"github.com/peekknuf/dqsweep/internal/orchestrator"
	"github.com/peekknuf/dqsweep/internal/results"
	"github.com/peekknuf/dqsweep/internal/telemetry"
)

var (
	runDataDir     string
	runResultsDir  string
	runSeed        uint64
	runWorkers     int
	runFresh       bool
	runPolicy      string
	runMetrics     []string
	runErrors      []string
	runRecursive   bool
	runMetricsFile string
	runTraceFile   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the corruption sweep over every batch in the data folder",
	Long: `Run computes every applicable metric on every column of every batch,
first on the clean column and then on each error at each fraction, and
appends the measurements to the result table one batch at a time.

Metrics already present in the result table are skipped according to the
resume policy, so an interrupted run can simply be started again.

Examples:
  dqsweep run                                  # folders from config.yaml
  dqsweep run --data ./data --results ./out    # override the folders
  dqsweep run --fresh --seed 42                # reproducible run from scratch
  dqsweep run --metrics mean,std --errors sort # restrict the sweep`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("data") {
			cfg.Folders.Data = runDataDir
		}
		if flags.Changed("results") {
			cfg.Folders.Results = runResultsDir
		}
		if flags.Changed("seed") {
			cfg.Run.Seed = runSeed
		}
		if flags.Changed("workers") {
			cfg.Run.Workers = runWorkers
		}
		if flags.Changed("resume-policy") {
			cfg.Run.ResumePolicy = runPolicy
		}
		if flags.Changed("metrics") {
			cfg.Run.Metrics = runMetrics
		}
		if flags.Changed("errors") {
			cfg.Run.Errors = runErrors
		}
		if err := cfg.Prepare(); err != nil {
			return err
		}

		shutdownTracing, err := telemetry.InitTracing(runTraceFile, version)
		if err != nil {
			return err
		}
		defer shutdownTracing(context.Background())

		metrics, err := metric.Default().Select(cfg.Run.Metrics)
		if err != nil {
			return err
		}
		generators, err := generator.Default().Select(cfg.Run.Errors)
		if err != nil {
			return err
		}

		files, err := connectors.DiscoverFiles(cfg.Folders.Data, cfg.Run.Extension,
			connectors.DiscoveryOptions{Recursive: runRecursive})
		if errors.Is(err, connectors.ErrNoFiles) {
			logger.Warn("nothing to do", "folder", cfg.Folders.Data, "extension", cfg.Run.Extension)
			return nil
		}
		if err != nil {
			return err
		}

		sink := results.NewSink(cfg.ResultsPath())
		if runFresh {
			if err := sink.Truncate(); err != nil {
				return err
			}
		}

		state := results.NewResumeState()
		if cfg.Policy() != results.PolicyOff {
			state, err = results.LoadResumeState(sink.Path())
			if err != nil {
				return err
			}
		}

		seed := cfg.Run.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}

		var checkpoints orchestrator.Checkpointer
		if cfg.Journal.Dir != "" {
			j, err := journal.Open(journal.Config{Dir: cfg.Journal.Dir, Logger: logger.With("component", "journal")})
			if err != nil {
				return err
			}
			defer j.Close()
			checkpoints = j
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetDescription("[cyan][reset] Sweeping batches..."),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionShowCount(),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		o, err := orchestrator.New(orchestrator.Options{
			Metrics:    metrics,
			Generators: generators,
			Fractions:  cfg.Run.Fractions,
			Resume:     state,
			Policy:     cfg.Policy(),
			Sink:       sink,
			Journal:    checkpoints,
			Seed:       seed,
			Workers:    cfg.Run.Workers,
			Logger:     logger,
			OnBatch: func(_ *dataset.Batch, _ int) {
				if bar != nil {
					bar.Add(1)
				}
			},
		})
		if err != nil {
			return err
		}

		logger.Info("sweep started",
			"run_id", o.RunID(),
			"batches", len(files),
			"metrics", len(metrics),
			"errors", len(generators),
			"fractions", len(cfg.Run.Fractions),
			"seed", seed,
			"resume_policy", cfg.Policy(),
			"results", sink.Path(),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sum, runErr := o.Run(ctx, connectors.Paths(files), cfg.LoadOptions())
		if bar != nil {
			bar.Finish()
		}

		if err := telemetry.WriteMetrics(runMetricsFile, prometheus.DefaultGatherer); err != nil {
			logger.Error("failed to write metrics", "error", err)
		}

		fmt.Printf("\nRun %s\n", sum.RunID)
		fmt.Printf("- Batches: %d of %d\n", sum.Batches, len(files))
		fmt.Printf("- Rows written: %s\n", humanize.Comma(int64(sum.Rows)))
		fmt.Printf("- Skipped (resume): %s\n", humanize.Comma(int64(sum.ResumeSkips)))
		fmt.Printf("- Pruned (type): %s\n", humanize.Comma(int64(sum.Pruned)))
		fmt.Printf("- Time: %v\n", sum.Elapsed.Round(time.Millisecond))
		fmt.Printf("- Results: %s\n", sink.Path())

		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runDataDir, "data", "d", "",
		"folder holding the batch files")
	runCmd.Flags().StringVarP(&runResultsDir, "results", "o", "",
		"folder for the result table")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0,
		"random seed for the corruptions (0 picks one from the clock)")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 1,
		"columns measured in parallel")
	runCmd.Flags().BoolVar(&runFresh, "fresh", false,
		"truncate the result table before the run")
	runCmd.Flags().StringVar(&runPolicy, "resume-policy", "",
		"skip policy for earlier measurements: global, combination, off")
	runCmd.Flags().StringSliceVar(&runMetrics, "metrics", nil,
		"metrics to measure (default all)")
	runCmd.Flags().StringSliceVar(&runErrors, "errors", nil,
		"error generators to apply (default all)")
	runCmd.Flags().BoolVarP(&runRecursive, "recursive", "r", false,
		"search the data folder recursively")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "",
		"write Prometheus metrics in textfile format to this path")
	runCmd.Flags().StringVar(&runTraceFile, "trace-file", "",
		"write OpenTelemetry spans as JSON to this path")
}
