package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openmirror/syncbox/internal/location"
	"github.com/openmirror/syncbox/internal/sync"
	"github.com/openmirror/syncbox/internal/version"
)

var (
	cyan  = color.New(color.FgHiCyan).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "syncbox <location1> <location2>",
	Short: "Mirror two file storage endpoints",
	Long: `
Syncbox keeps two storage endpoints mirrored: one immediate full
reconciliation pass, then continuous monitoring until interrupted.

Locations are given as selector strings:

  folder:/path/to/dir
  zip:/path/to/archive.zip
  ftp:user:pass@host[:port]/dir
  s3:[key:secret@]bucket[/prefix]`,
	Version: version.Detailed(),
	Args:    cobra.ExactArgs(2),
	RunE:    run,
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().DurationP("interval", "i", sync.DefaultPollInterval, "poll interval for polling-only locations")
	rootCmd.Flags().Bool("sync-only", false, "run one reconciliation pass and exit without monitoring")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	viper.SetEnvPrefix("SYNCBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(rootCmd.Flags())
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Fail fast on malformed selectors before any I/O.
	selA, err := location.ParseSelector(args[0])
	if err != nil {
		return err
	}
	selB, err := location.ParseSelector(args[1])
	if err != nil {
		return err
	}

	// From here every failure is operational, not usage.
	cmd.SilenceUsage = true
	showHeader()

	locA, err := location.New(ctx, selA)
	if err != nil {
		return err
	}
	defer closeLocation(locA)

	locB, err := location.New(ctx, selB)
	if err != nil {
		return err
	}
	defer closeLocation(locB)

	slog.Info("locations ready", "a", locA, "b", locB)

	reconciler := sync.NewReconciler(locA, locB)
	if err := reconciler.Reconcile(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		// The monitor's next trigger re-runs the pass; keep going.
		slog.Error("initial reconcile", "error", err)
	}

	if viper.GetBool("sync-only") {
		return nil
	}

	monitor := sync.NewMonitor(locA, locB, viper.GetDuration("interval"))
	defer slog.Info("Bye!")
	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeLocation(loc location.Location) {
	if closer, ok := loc.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("close location", "location", loc, "error", err)
		}
	}
}

func showHeader() {
	fmt.Fprintf(os.Stderr, "%s %s\n", cyan(version.AppName), faint(version.Short()))
}

func setupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.OnInitialize(setupLogger)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
