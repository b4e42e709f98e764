package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"sprunq/internal/job"
	"sprunq/internal/runq"
)

var rootCmd = &cobra.Command{
	Use:   "ticksched",
	Short: "ticksched - a tick driven static priority scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		// Read the configuration, flags win over the file
		path, _ := flags.GetString("config")
		cfg := runq.Load(path)
		if flags.Changed("csv") {
			cfg.CSVPath, _ = flags.GetString("csv")
		}
		if flags.Changed("log-level") {
			cfg.LogLevel, _ = flags.GetString("log-level")
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("config", "config.yml", "path to the YAML configuration")
	flags.String("csv", "", "write scheduler events as CSV to this path")
	flags.String("log-level", "info", "debug, info, warn or error")
}

// run schedules the configured workload and returns once every job has
// finished or failed, or ctx is done.
func run(ctx context.Context, cfg runq.Config) error {
	specs := cfg.Tasks
	if len(specs) == 0 {
		specs = defaultWorkload(cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pending atomic.Int64
	pending.Store(int64(len(specs)))
	r := runq.New(cfg, runq.WithObserver(func(ev runq.StatusEvent) {
		switch ev.Kind {
		case runq.StatusFinish, runq.StatusFail:
			if pending.Add(-1) == 0 {
				cancel()
			}
		}
	}))

	if cfg.CSVPath != "" {
		if err := r.EnableCSVLogging(cfg.CSVPath); err != nil {
			return err
		}
	}

	for _, spec := range specs {
		if err := r.Add(runq.NewJob(spec.ID, job.SleepWork(spec.WorkMS)), spec.Priority); err != nil {
			return fmt.Errorf("add job: %w", err)
		}
	}

	slog.Info("running workload", "jobs", len(specs), "levels", cfg.Levels, "slice_ticks", cfg.SliceTicks)
	return r.Run(ctx)
}

// defaultWorkload spreads a handful of jobs over the configured levels.
func defaultWorkload(cfg runq.Config) []runq.JobSpec {
	specs := make([]runq.JobSpec, 0, 6)
	for i := 0; i < 6; i++ {
		specs = append(specs, runq.JobSpec{
			ID:       runq.JobID(i + 1),
			Priority: (i + cfg.DefaultPriority) % cfg.Levels,
			WorkMS:   int64(cfg.TickMS * cfg.SliceTicks * (i%3 + 1)),
		})
	}
	return specs
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
