package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"niftymic/internal/pipeline"
	"niftymic/internal/workdir"
)

type statusView struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Stage      string `json:"stage"`
	NextStep   string `json:"next_step,omitempty"`
	DicomInput int    `json:"dicom_input_files"`
	Nifti      int    `json:"nifti_volumes"`
	Masks      int    `json:"masks"`
	Volume     bool   `json:"reconstructed_volume"`
	DicomOut   int    `json:"dicom_output_files"`
	Archive    string `json:"result_archive,omitempty"`
	LastStep   string `json:"last_step,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status <workdir>",
		Short: "Show how far a working directory has progressed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := resolveWorkdir(cfg, args[0])
			if err != nil {
				return err
			}
			wd, err := workdir.Open(root)
			if err != nil {
				return err
			}
			view := buildStatusView(wd)

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			if store != nil {
				job, ok, err := store.Job(cmd.Context(), wd.Name)
				if err != nil {
					return err
				}
				if ok {
					view.LastStep = job.LastStep
					view.LastStatus = job.LastStatus
				}
			}

			if jsonOutput {
				return writeJSON(cmd, view)
			}
			renderStatus(cmd, view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")
	return cmd
}

func buildStatusView(wd *workdir.WorkingDirectory) statusView {
	inv := wd.Inventory()
	stage := pipeline.Detect(inv)
	view := statusView{
		Name:       wd.Name,
		Path:       wd.Root,
		Stage:      stage.String(),
		DicomInput: inv.ArchiveFiles,
		Nifti:      inv.NiftiFiles,
		Masks:      inv.MaskFiles,
		Volume:     inv.HasOutputNifti,
		DicomOut:   inv.DicomFiles,
	}
	if stage < pipeline.DicomRegenerated {
		view.NextStep = (stage + 1).Step()
	}
	if inv.HasResultArchive {
		view.Archive = wd.ResultArchivePath()
	}
	return view
}

func renderStatus(cmd *cobra.Command, view statusView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	stage, _ := pipeline.ParseStage(view.Stage)
	next := "none"
	if view.NextStep != "" {
		next = view.NextStep
	}
	writeSection(out, "Working directory", []string{
		renderStatusLine("Path", statusInfo, view.Path, colorize),
		renderStatusLine("Stage", statusInfo, stage.Label(), colorize),
		renderStatusLine("Next step", statusInfo, next, colorize),
	}, colorize)

	lines := []string{
		renderStatusLine("DICOM input files", countKind(view.DicomInput), fmt.Sprint(view.DicomInput), colorize),
		renderStatusLine("NIfTI volumes", countKind(view.Nifti), fmt.Sprint(view.Nifti), colorize),
		renderStatusLine("Masks", countKind(view.Masks), fmt.Sprint(view.Masks), colorize),
		renderStatusLine("Reconstructed volume", presenceKind(view.Volume), yesNo(view.Volume), colorize),
		renderStatusLine("DICOM output files", countKind(view.DicomOut), fmt.Sprint(view.DicomOut), colorize),
	}
	if view.Archive != "" {
		lines = append(lines, renderStatusLine("Result archive", statusOK, view.Archive, colorize))
	} else {
		lines = append(lines, renderStatusLine("Result archive", statusWarn, "not created", colorize))
	}
	writeSection(out, "Outputs", lines, colorize)

	if view.LastStep != "" {
		kind := statusOK
		if view.LastStatus == pipeline.StatusFailed {
			kind = statusError
		}
		writeSection(out, "Ledger", []string{
			renderStatusLine("Last run", kind, view.LastStep+" "+view.LastStatus, colorize),
		}, colorize)
	}
}
