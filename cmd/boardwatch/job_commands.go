package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"boardwatch/internal/daemonrun"
	"boardwatch/internal/pipeline"
	"boardwatch/internal/scheduler"
	"boardwatch/internal/services"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAnalyzeCommand(ctx),
		newScrapeCommand(ctx),
		newPublishCommand(ctx),
		newInitCommand(ctx),
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the analyze job once",
		Long: "Load the thread corpus, run every analyzer, generate articles for the\n" +
			"selected threads, and publish the snapshot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(runCtx context.Context, svc *daemonrun.Services) error {
				exec, err := svc.Scheduler.RunAnalyzeNow(daemonrun.WithForce(runCtx, force))
				return reportExecution(cmd, scheduler.JobAnalyze, exec, err)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate articles even when a record exists")
	return cmd
}

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run the configured scraper once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(runCtx context.Context, svc *daemonrun.Services) error {
				if !svc.Scraper.Configured() {
					fmt.Fprintln(cmd.OutOrStdout(), "No scraper configured (set scrape.command); nothing to do")
					return nil
				}
				exec, err := svc.Scheduler.RunScrapeNow(runCtx)
				return reportExecution(cmd, scheduler.JobScrape, exec, err)
			})
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Rebuild the public snapshot from existing analyzer results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(runCtx context.Context, svc *daemonrun.Services) error {
				snapshot, err := svc.Pipeline.Publish(runCtx)
				if err != nil {
					return jobError("publish", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Snapshot written to %s\n", ctx.config.SnapshotPath())
				fmt.Fprintln(out, renderCounters(map[string]int{
					"significant_gets": len(snapshot.SignificantGets),
					"key_insights":     len(snapshot.KeyInsights),
					"keyword_matches":  len(snapshot.Keyword.Matches),
				}))
				return nil
			})
		},
	}
}

func newInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory skeleton and seed empty outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg, pipeline.Deps{Logger: logger})
			if err != nil {
				return err
			}
			created, err := p.Init(cmd.Context())
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			out := cmd.OutOrStdout()
			if created == 0 {
				fmt.Fprintf(out, "Data directory %s already initialized\n", cfg.Paths.DataDir)
				return nil
			}
			fmt.Fprintf(out, "Initialized %s (%d directories and files created)\n", cfg.Paths.DataDir, created)
			return nil
		},
	}
}

func reportExecution(cmd *cobra.Command, job string, exec scheduler.Execution, err error) error {
	if err != nil {
		return jobError(job, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s run %s completed in %s\n", exec.Job, exec.RunID, exec.Duration.Round(time.Millisecond))
	if table := renderCounters(exec.Counters); table != "" {
		fmt.Fprintln(out, table)
	}
	return nil
}

func jobError(job string, err error) error {
	if errors.Is(err, services.ErrJobRunning) {
		return fmt.Errorf("another %s run is active on this data directory; try again later", job)
	}
	return fmt.Errorf("%s failed: %w", job, err)
}
