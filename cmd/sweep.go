package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/factor591/aisheets/internal/pipeline"
)

var (
	sweepDir      string
	sweepMaxAge   time.Duration
	sweepWatch    bool
	sweepInterval time.Duration
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete old output files",
	Long: `Remove processed_* files older than --max-age from the output directory.

Only regular files carrying the output prefix are considered, so inputs and
unrelated files are left alone. With --watch the sweep repeats every
--interval until interrupted.

Examples:
  aisheets sweep --dir ./out
  aisheets sweep --dir ./out --max-age 30m --watch --interval 5m`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepDir, "dir", "", "Directory to sweep (default: configured output dir, else current dir)")
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", pipeline.DefaultSweepAge, "Remove files older than this")
	sweepCmd.Flags().BoolVar(&sweepWatch, "watch", false, "Keep sweeping until interrupted")
	sweepCmd.Flags().DurationVar(&sweepInterval, "interval", pipeline.DefaultSweepInterval, "Time between sweeps with --watch")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if sweepMaxAge <= 0 {
		return fmt.Errorf("--max-age must be positive")
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	dir := sweepDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	if dir == "" {
		dir = "."
	}

	s := &pipeline.Sweeper{Dir: dir, MaxAge: sweepMaxAge, Interval: sweepInterval, Logger: log}
	if sweepWatch {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()
		if err := s.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	}

	removed, err := s.SweepOnce()
	for _, p := range removed {
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p)
	}
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to remove.")
	}
	return nil
}
