package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"niftymic/internal/deps"
	"niftymic/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify host executables, directories, and the NiftyMIC image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cfg)
			depLines := make([]string, 0, len(statuses))
			for _, status := range statuses {
				depLines = append(depLines, renderDependency(status, colorize))
			}
			writeSection(out, "Dependencies", depLines, colorize)

			results := preflight.RunAll(cmd.Context(), cfg)
			envLines := make([]string, 0, len(results))
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				envLines = append(envLines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			writeSection(out, "Environment", envLines, colorize)

			failures := len(deps.MissingRequired(statuses)) + len(preflight.Failed(results))
			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func renderDependency(status deps.Status, colorize bool) string {
	if status.Available {
		return renderStatusLine(status.Name, statusOK, status.Path, colorize)
	}
	kind := statusError
	if status.Optional {
		kind = statusWarn
	}
	message := status.Detail
	if status.Description != "" {
		message += " (" + status.Description + ")"
	}
	return renderStatusLine(status.Name, kind, message, colorize)
}
