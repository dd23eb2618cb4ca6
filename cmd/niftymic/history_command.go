package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

type historyEntry struct {
	RequestID  string    `json:"request_id"`
	Job        string    `json:"job"`
	Step       string    `json:"step"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history [workdir]",
		Short: "Show recorded stage runs, for one working directory or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("stage history is disabled (ledger.enabled = false)")
			}

			var job string
			if len(args) == 1 {
				root, err := resolveWorkdir(cfg, args[0])
				if err != nil {
					return err
				}
				job = filepath.Base(root)
			}
			records, err := store.Runs(cmd.Context(), job)
			if err != nil {
				return err
			}

			entries := make([]historyEntry, 0, len(records))
			for _, rec := range records {
				entries = append(entries, historyEntry{
					RequestID:  rec.RequestID,
					Job:        rec.Job,
					Step:       rec.Step,
					Status:     rec.Status,
					ErrorKind:  rec.ErrorKind,
					Error:      rec.Error,
					StartedAt:  rec.StartedAt,
					FinishedAt: rec.FinishedAt,
					DurationMS: rec.Duration().Milliseconds(),
				})
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No stage runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := entry.Error
				if entry.ErrorKind != "" {
					detail = entry.ErrorKind + ": " + detail
				}
				rows = append(rows, []string{
					entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Job,
					entry.Step,
					entry.Status,
					(time.Duration(entry.DurationMS) * time.Millisecond).String(),
					truncate(detail, 60),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "Started"},
				{header: "Job"},
				{header: "Step"},
				{header: "Status"},
				{header: "Duration", align: alignRight},
				{header: "Error"},
			}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
