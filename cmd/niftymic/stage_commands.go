package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"niftymic/internal/config"
	"niftymic/internal/pipeline"
)

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newPipelineCommand(ctx),
		newConvertDicomCommand(ctx),
		newGenerateMasksCommand(ctx),
		newReconstructCommand(ctx),
		newConvertNiftiCommand(ctx),
	}
}

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	var flags reconstructionFlags
	cmd := &cobra.Command{
		Use:   "pipeline <archive.zip>",
		Short: "Run every stage from a DICOM archive to a reconstructed DICOM archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd, ctx, cfg, args[0])
			if err != nil {
				return err
			}
			result, err := p.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Result archive: %s\n", result)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newConvertDicomCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert-dicom <archive.zip>",
		Short: "Create a working directory from a DICOM archive and convert it to NIfTI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd, ctx, cfg, args[0])
			if err != nil {
				return err
			}
			if err := p.ConvertDicomToNifti(cmd.Context()); err != nil {
				return err
			}
			printStage(cmd, p)
			return nil
		},
	}
}

func newGenerateMasksCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "generate-masks <workdir>",
		Short: "Segment a brain mask for every NIfTI volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			p, err := attachPipeline(ctx, args[0], pipeline.MasksGenerated, force)
			if err != nil {
				return err
			}
			if err := p.GenerateMasks(cmd.Context()); err != nil {
				return err
			}
			printStage(cmd, p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Run even if the previous stage has not completed")
	return cmd
}

func newReconstructCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var flags reconstructionFlags
	cmd := &cobra.Command{
		Use:   "reconstruct <workdir>",
		Short: "Reconstruct an isotropic volume from the NIfTI volumes and masks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.options(cmd, cfg)
			if err != nil {
				return err
			}
			p, err := attachPipeline(ctx, args[0], pipeline.Reconstructed, force)
			if err != nil {
				return err
			}
			if err := p.Reconstruct(cmd.Context(), opts); err != nil {
				return err
			}
			printStage(cmd, p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Run even if the previous stage has not completed")
	flags.register(cmd)
	return cmd
}

func newConvertNiftiCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "convert-nifti <workdir>",
		Short: "Convert the reconstructed volume to DICOM and package it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			p, err := attachPipeline(ctx, args[0], pipeline.DicomRegenerated, force)
			if err != nil {
				return err
			}
			result, err := p.ConvertNiftiToDicom(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Result archive: %s\n", result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Run even if the previous stage has not completed")
	return cmd
}

// newPipeline creates the working directory and reports it before any stage
// runs, so a failed run can be resumed by path.
func newPipeline(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, archivePath string) (*pipeline.Pipeline, error) {
	opts, err := ctx.pipelineOptions()
	if err != nil {
		return nil, err
	}
	resolved, err := config.ExpandPath(archivePath)
	if err != nil {
		return nil, fmt.Errorf("resolve archive path: %w", err)
	}
	p, err := pipeline.New(cmd.Context(), cfg, resolved, opts...)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Working directory: %s\n", p.WorkingDirectory().Root)
	return p, nil
}

func attachPipeline(ctx *commandContext, dir string, target pipeline.Stage, force bool) (*pipeline.Pipeline, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts, err := ctx.pipelineOptions()
	if err != nil {
		return nil, err
	}
	root, err := resolveWorkdir(cfg, dir)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.FromWorkingDirectory(cfg, root, opts...)
	if err != nil {
		return nil, err
	}
	if !force {
		if err := p.Require(target); err != nil {
			return nil, fmt.Errorf("%w (use --force to run anyway)", err)
		}
	}
	return p, nil
}

// resolveWorkdir accepts a path or the bare name of a directory under
// paths.base_directory.
func resolveWorkdir(cfg *config.Config, dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("working directory is required")
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return expanded, nil
	}
	if !strings.ContainsRune(dir, filepath.Separator) {
		candidate := filepath.Join(cfg.Paths.BaseDirectory, dir)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return expanded, nil
}

func printStage(cmd *cobra.Command, p *pipeline.Pipeline) {
	fmt.Fprintf(cmd.OutOrStdout(), "Stage: %s\n", p.Stage().Label())
}

type reconstructionFlags struct {
	alpha               float64
	outlierRejection    bool
	thresholdFirst      float64
	threshold           float64
	intensityCorrection bool
	isotropicResolution float64
	twoStepCycles       int
}

func (f *reconstructionFlags) register(cmd *cobra.Command) {
	def := config.Default().Reconstruction
	flags := cmd.Flags()
	flags.Float64Var(&f.alpha, "alpha", def.Alpha, "Regularization weight")
	flags.BoolVar(&f.outlierRejection, "outlier-rejection", def.OutlierRejection, "Reject outlier slices")
	flags.Float64Var(&f.thresholdFirst, "threshold-first", def.ThresholdFirst, "Outlier threshold for the first cycle")
	flags.Float64Var(&f.threshold, "threshold", def.Threshold, "Outlier threshold for later cycles")
	flags.BoolVar(&f.intensityCorrection, "intensity-correction", def.IntensityCorrection, "Apply intensity correction")
	flags.Float64Var(&f.isotropicResolution, "isotropic-resolution", def.IsotropicResolution, "Output voxel size in mm")
	flags.IntVar(&f.twoStepCycles, "two-step-cycles", def.TwoStepCycles, "Number of two-step registration cycles")
}

// options overlays explicitly set flags on the configured defaults.
func (f *reconstructionFlags) options(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	r := cfg.Reconstruction
	flags := cmd.Flags()
	if flags.Changed("alpha") {
		r.Alpha = f.alpha
	}
	if flags.Changed("outlier-rejection") {
		r.OutlierRejection = f.outlierRejection
	}
	if flags.Changed("threshold-first") {
		r.ThresholdFirst = f.thresholdFirst
	}
	if flags.Changed("threshold") {
		r.Threshold = f.threshold
	}
	if flags.Changed("intensity-correction") {
		r.IntensityCorrection = f.intensityCorrection
	}
	if flags.Changed("isotropic-resolution") {
		r.IsotropicResolution = f.isotropicResolution
	}
	if flags.Changed("two-step-cycles") {
		r.TwoStepCycles = f.twoStepCycles
	}
	check := *cfg
	check.Reconstruction = r
	if err := check.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.OptionsFromConfig(r), nil
}
