package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fanpulse/fanpulse/internal/scheduler"
)

// newScheduleCmd builds the scheduler commands.
func newScheduleCmd() *cobra.Command {
	var schedulerConfigPath string

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduled recomputation jobs",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler loop",
		Long:  "Run the daily FVS and periodic momentum recomputation jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(schedulerConfigPath)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listJobs(schedulerConfigPath)
		},
	}

	scheduleCmd.PersistentFlags().StringVar(&schedulerConfigPath, "jobs", "config/scheduler.yaml", "Path to the scheduler config file")
	scheduleCmd.AddCommand(startCmd, listCmd)
	return scheduleCmd
}

func runScheduler(schedulerConfigPath string) error {
	config, err := scheduler.LoadConfig(schedulerConfigPath)
	if err != nil {
		return err
	}

	svc, err := buildServices(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stop
		log.Info().Str("signal", sig.String()).Msg("stopping scheduler")
		cancel()
	}()

	sched := scheduler.New(config, svc.batch)
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func listJobs(schedulerConfigPath string) error {
	config, err := scheduler.LoadConfig(schedulerConfigPath)
	if err != nil {
		return err
	}

	for _, job := range config.Jobs {
		state := "enabled"
		if !job.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-20s %-18s %-10s %s\n", job.Name, job.Type, state, job.Interval)
	}
	return nil
}
