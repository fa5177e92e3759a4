package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joeycumines/go-alarmsvc"
)

var (
	logLevel      string
	wakeThreshold int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "alarmdemo",
		Short: "Drive the alarm service from the command line",
		Long:  "alarmdemo exercises a standalone alarm.Service: schedule one-shot and periodic alarms, watch them fire, and inspect their statistics.",
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64Var(&wakeThreshold, "wakelock-threshold-ms", 3000, "Override alarm.WakelockThresholdMS")

	rootCmd.AddCommand(onceCmd())
	rootCmd.AddCommand(periodicCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newService() *alarm.Service {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	alarm.WakelockThresholdMS = wakeThreshold
	return alarm.New(
		alarm.WithLogger(alarm.NewZerologLogger(zl)),
		alarm.WithDispatcherPriority(true),
	)
}

func onceCmd() *cobra.Command {
	var delayMS int64
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Schedule a single one-shot alarm and wait for it to fire",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := newService()
			defer svc.Cleanup()

			fired := make(chan struct{})
			a := svc.NewAlarm("demo-once")
			if err := a.Set(delayMS, func(data any) {
				fmt.Printf("fired: %v\n", data)
				close(fired)
			}, "hello from alarmdemo"); err != nil {
				return err
			}

			<-fired
			snap := a.StatsSnapshot()
			fmt.Printf("scheduled=%d canceled=%d execution.count=%d\n", snap.ScheduledCount, snap.CanceledCount, snap.CallbackExecution.Count)
			return nil
		},
	}
	cmd.Flags().Int64Var(&delayMS, "delay-ms", 1000, "Delay before the alarm fires")
	return cmd
}

func periodicCmd() *cobra.Command {
	var periodMS int64
	var firings int
	cmd := &cobra.Command{
		Use:   "periodic",
		Short: "Schedule a periodic alarm and cancel it after a number of firings",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := newService()
			defer svc.Cleanup()

			count := 0
			done := make(chan struct{})
			a := svc.NewPeriodicAlarm("demo-periodic")
			if err := a.Set(periodMS, func(data any) {
				count++
				fmt.Printf("firing %d/%d\n", count, firings)
				if count >= firings {
					close(done)
				}
			}, nil); err != nil {
				return err
			}

			<-done
			if err := a.Cancel(); err != nil {
				return err
			}
			snap := a.StatsSnapshot()
			fmt.Printf("rescheduled=%d execution.count=%d overdue.max=%dms\n", snap.RescheduledCount, snap.CallbackExecution.Count, snap.OverdueScheduling.Max)
			return nil
		},
	}
	cmd.Flags().Int64Var(&periodMS, "period-ms", 250, "Firing period")
	cmd.Flags().IntVar(&firings, "firings", 3, "Number of firings to wait for before canceling")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("alarmdemo (module github.com/joeycumines/go-alarmsvc)\n")
			fmt.Printf("  go version: %s\n", runtime.Version())
			fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
