package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"niftymic/internal/ledger"
	"niftymic/internal/pipeline"
	"niftymic/internal/workdir"
)

type listEntry struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Stage      string `json:"stage"`
	Modified   string `json:"modified"`
	SizeBytes  int64  `json:"size_bytes"`
	LastStep   string `json:"last_step,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List working directories under the base directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := workdir.List(cfg.Paths.BaseDirectory)
			if err != nil {
				return fmt.Errorf("list working directories: %w", err)
			}

			jobs := map[string]ledger.Job{}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			if store != nil {
				all, err := store.Jobs(cmd.Context())
				if err != nil {
					return err
				}
				for _, job := range all {
					jobs[job.Name] = job
				}
			}

			entries := make([]listEntry, 0, len(dirs))
			for _, dir := range dirs {
				wd, err := workdir.Open(dir.Path)
				if err != nil {
					return err
				}
				entry := listEntry{
					Name:      dir.Name,
					Path:      dir.Path,
					Stage:     pipeline.Detect(wd.Inventory()).String(),
					Modified:  dir.ModTime.UTC().Format("2006-01-02T15:04:05Z"),
					SizeBytes: dir.Size,
				}
				if job, ok := jobs[dir.Name]; ok {
					entry.LastStep = job.LastStep
					entry.LastStatus = job.LastStatus
				}
				entries = append(entries, entry)
			}

			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintf(out, "No working directories under %s\n", cfg.Paths.BaseDirectory)
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			for i, entry := range entries {
				stage, _ := pipeline.ParseStage(entry.Stage)
				last := "-"
				if entry.LastStep != "" {
					last = entry.LastStep + " " + entry.LastStatus
				}
				rows = append(rows, []string{
					entry.Name,
					stage.Label(),
					humanize.Time(dirs[i].ModTime),
					humanize.Bytes(uint64(entry.SizeBytes)),
					last,
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "Name"},
				{header: "Stage"},
				{header: "Modified"},
				{header: "Size", align: alignRight},
				{header: "Last Run"},
			}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
