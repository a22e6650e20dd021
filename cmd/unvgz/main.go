package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vgmkit/unvgz/internal/config"
	"github.com/vgmkit/unvgz/internal/engine"
	"github.com/vgmkit/unvgz/internal/event"
	"github.com/vgmkit/unvgz/internal/sizespec"
	"github.com/vgmkit/unvgz/internal/stats"
	"github.com/vgmkit/unvgz/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point orchestrates all flag parsing
func run() int {
	var (
		skipExisting bool
		flatOutput   bool
		maxSizeStr   string
		workers      int
		dryRun       bool
		verifyFlag   bool
		noTimes      bool
		verbose      bool
		quiet        bool
		noProgress   bool
		bwLimitStr   string
		logFile      string
		showVersion  bool
	)

	rootCmd := &cobra.Command{
		Use:   "unvgz [flags] <input-dir> <output-dir>",
		Short: "Recursively decompress .vgz audio logs into raw .vgm files",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "unvgz %s\n", version)
				return nil
			}

			inputDir := args[0]
			outputDir := args[1]

			// Configure logging.
			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			} else if quiet {
				logLevel = slog.LevelWarn
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			if logFile != "" {
				lf, lfErr := os.Create(logFile)
				if lfErr != nil {
					return fmt.Errorf("open log file: %w", lfErr)
				}
				defer lf.Close()
				jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
			}
			logger := slog.New(logHandler)
			slog.SetDefault(logger)

			// Validate the input directory before anything else.
			info, err := os.Stat(inputDir)
			if err != nil || !info.IsDir() {
				logger.Error("input directory does not exist", "path", inputDir)
				return &exitError{code: 1}
			}

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				logger.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults,
				&workers, &flatOutput, &skipExisting, &verifyFlag, &noTimes, &bwLimitStr)

			// Parse the decompressed-size ceiling.
			var maxBytes int64
			if maxSizeStr != "" {
				maxBytes, err = sizespec.Parse(maxSizeStr)
				if err != nil {
					logger.Error("invalid --max-size", "value", maxSizeStr, "error", err)
					return &exitError{code: 2}
				}
			}

			var bwLimit int64
			if bwLimitStr != "" {
				bwLimit, err = sizespec.Parse(bwLimitStr)
				if err != nil {
					return fmt.Errorf("invalid --bwlimit: %w", err)
				}
			}

			if dryRun {
				logger.Info("dry run mode")
			}

			// Set up context with signal handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			// When --log is set, tee events through a logging goroutine
			// that writes structured records before forwarding to the
			// presenter.
			presenterEvents := (<-chan event.Event)(events)
			if logFile != "" {
				teed := make(chan event.Event, 256)
				go func() {
					for ev := range events {
						attrs := []slog.Attr{
							slog.String("type", ev.Type.String()),
							slog.String("path", ev.Path),
							slog.Int64("size", ev.Size),
							slog.Int("worker", ev.WorkerID),
						}
						if ev.Error != nil {
							attrs = append(attrs, slog.String("error", ev.Error.Error()))
						}
						slog.LogAttrs(context.Background(), slog.LevelInfo, "unvgz.event", attrs...)
						teed <- ev
					}
					close(teed)
				}()
				presenterEvents = teed
			}

			presenter := ui.NewPresenter(ui.Config{
				Writer:     os.Stdout,
				ErrWriter:  os.Stderr,
				Stats:      collector,
				DstRoot:    outputDir,
				IsTTY:      ui.IsTTY(os.Stderr.Fd()),
				Quiet:      quiet,
				NoProgress: noProgress,
			})

			slog.Debug("starting decompression run",
				"input", inputDir,
				"output", outputDir,
				"flat", flatOutput,
				"skip_existing", skipExisting,
				"max_bytes", maxBytes,
				"workers", workers,
			)

			// Run presenter in background, engine in foreground.
			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			result := engine.Run(ctx, engine.Config{
				Src:          inputDir,
				Dst:          outputDir,
				Flatten:      flatOutput,
				SkipExisting: skipExisting,
				MaxBytes:     maxBytes,
				Workers:      workers,
				DryRun:       dryRun,
				Verify:       verifyFlag,
				NoTimes:      noTimes,
				BWLimit:      bwLimit,
				Events:       events,
				Stats:        collector,
				Log:          logger,
			})
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if !quiet {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
			}

			if result.Err != nil {
				logger.Error("run failed", "error", result.Err)
				return &exitError{code: 1}
			}

			// Per-file failures are contained and already logged.
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		BoolVar(&skipExisting, "skip-existing", false, "skip files whose output already exists")
	rootCmd.Flags().
		StringVar(&maxSizeStr, "max-size", "", "discard files whose decompressed size exceeds SIZE (e.g. 40K, 2M)")
	rootCmd.Flags().
		BoolVar(&flatOutput, "flat-output", false, "write all outputs directly into the output directory, disambiguating name collisions")
	rootCmd.Flags().
		IntVarP(&workers, "workers", "n", 0, "number of decompression workers (default: min(NumCPU, 8))")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be decompressed without writing")
	rootCmd.Flags().
		BoolVar(&verifyFlag, "verify", false, "re-read each published output and verify its checksum (BLAKE3)")
	rootCmd.Flags().
		BoolVar(&noTimes, "no-times", false, "don't carry source mtimes onto outputs")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable periodic progress lines")
	rootCmd.Flags().
		StringVar(&bwLimitStr, "bwlimit", "", "decompressed write throughput limit (e.g. 100M, 1G)")
	rootCmd.Flags().
		StringVar(&logFile, "log", "", "write structured JSON log to FILE")

	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	workers *int,
	flatOutput *bool,
	skipExisting *bool,
	verify *bool,
	noTimes *bool,
	bwLimit *string,
) {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		*workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("flat-output") && defaults.FlatOutput != nil {
		*flatOutput = *defaults.FlatOutput
	}
	if !cmd.Flags().Changed("skip-existing") && defaults.SkipExisting != nil {
		*skipExisting = *defaults.SkipExisting
	}
	if !cmd.Flags().Changed("verify") && defaults.Verify != nil {
		*verify = *defaults.Verify
	}
	if !cmd.Flags().Changed("no-times") && defaults.NoTimes != nil {
		*noTimes = *defaults.NoTimes
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		*bwLimit = *defaults.BWLimit
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
