package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"boardwatch/internal/config"
	"boardwatch/internal/ledger"
	"boardwatch/internal/preflight"
	"boardwatch/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show readiness checks and recent job runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			fmt.Fprintf(out, "Schedule: scrape %q, analyze %q (UTC)\n\n",
				cfg.Scheduler.ScrapeSchedule, cfg.Scheduler.AnalyzeSchedule)

			results := preflight.RunAll(cmd.Context(), cfg)
			fmt.Fprintln(out, renderPreflight(results))

			runs, err := ledger.Open(cmd.Context(), cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer runs.Close()

			recent, err := runs.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			fmt.Fprintln(out)
			renderRuns(out, recent)
			renderSnapshotInfo(out, cfg)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent runs to show")
	return cmd
}

func renderPreflight(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, textutil.Ternary(r.Passed, "OK", "FAIL"), r.Detail})
	}
	return renderTable([]string{"Check", "State", "Detail"}, rows, nil)
}

func renderRuns(out io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Job,
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			textutil.Truncate(strings.TrimSpace(run.Error), 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Job", "Status", "Started", "Duration", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func renderSnapshotInfo(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "Snapshot: %s\n", cfg.SnapshotPath())
	fmt.Fprintf(out, "Articles enabled: %s\n", yesNo(cfg.Articles.Enabled))
	fmt.Fprintf(out, "Scraper configured: %s\n", yesNo(strings.TrimSpace(cfg.Scrape.Command) != ""))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
