package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"niftymic/internal/archive"
	"niftymic/internal/config"
	"niftymic/internal/logging"
	"niftymic/internal/services"
	"niftymic/internal/services/docker"
	"niftymic/internal/services/process"
	"niftymic/internal/workdir"
)

// Containerized tool names.
const (
	SegmentTool     = "niftymic_segment_fetal_brains"
	ReconstructTool = "niftymic_reconstruct_volume"
)

// ArchiveFunc packages files from a directory into an archive.
type ArchiveFunc func(ctx context.Context, srcDir, outPath string, filter archive.Filter) error

// Pipeline runs stages against one working directory.
type Pipeline struct {
	cfg      *config.Config
	wd       *workdir.WorkingDirectory
	runner   process.Runner
	docker   *docker.Builder
	logger   *slog.Logger
	recorder Recorder
	extract  workdir.ExtractFunc
	pack     ArchiveFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunner replaces the process supervisor (primarily for tests).
func WithRunner(r process.Runner) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.runner = r
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder reports every stage outcome to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithExtractor replaces the zip extractor used by New.
func WithExtractor(fn workdir.ExtractFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.extract = fn
		}
	}
}

// WithArchiver replaces the zip writer used by ConvertNiftiToDicom.
func WithArchiver(fn ArchiveFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.pack = fn
		}
	}
}

func build(cfg *config.Config, opts []Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "pipeline", "configuration is required", nil)
	}
	p := &Pipeline{
		cfg:     cfg,
		extract: archive.Extract,
		pack:    archive.Create,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	if p.runner == nil {
		p.runner = process.NewSupervisor(p.logger)
	}
	p.docker = docker.FromConfig(cfg, p.runner)
	return p, nil
}

// New creates a working directory for archivePath below the configured base
// directory and extracts the archive into it.
func New(ctx context.Context, cfg *config.Config, archivePath string, opts ...Option) (*Pipeline, error) {
	p, err := build(cfg, opts)
	if err != nil {
		return nil, err
	}
	wd, err := workdir.CreateFromArchive(ctx, archivePath, cfg.Paths.BaseDirectory, p.extract)
	if err != nil {
		return nil, err
	}
	p.wd = wd
	logging.WithContext(services.WithJob(ctx, wd.Name), p.logger).Info("working directory created",
		logging.String("path", wd.Root),
		logging.String("archive", archivePath),
		logging.String(logging.FieldEventType, "workdir_created"),
	)
	return p, nil
}

// FromWorkingDirectory attaches to an existing working directory.
func FromWorkingDirectory(cfg *config.Config, dir string, opts ...Option) (*Pipeline, error) {
	p, err := build(cfg, opts)
	if err != nil {
		return nil, err
	}
	wd, err := workdir.Open(dir)
	if err != nil {
		return nil, err
	}
	p.wd = wd
	return p, nil
}

// WorkingDirectory exposes the directory the pipeline operates on.
func (p *Pipeline) WorkingDirectory() *workdir.WorkingDirectory {
	return p.wd
}

// Stage reports the furthest stage completed on disk.
func (p *Pipeline) Stage() Stage {
	return Detect(p.wd.Inventory())
}

// Require fails with services.ErrStagePrerequisite unless the directory has
// reached the stage needed to produce target.
func (p *Pipeline) Require(target Stage) error {
	need := target.Prerequisite()
	current := p.Stage()
	if current >= need {
		return nil
	}
	return services.Wrap(services.ErrStagePrerequisite, target.Step(), "require",
		fmt.Sprintf("%s needs %s, directory is %s", target.Step(), need, current), nil)
}

// ConvertDicomToNifti runs dcm2niix over the extracted archive.
func (p *Pipeline) ConvertDicomToNifti(ctx context.Context) error {
	return p.runStage(ctx, StepConvertDicom, func(ctx context.Context) error {
		inv := process.Invocation{
			Stage:  StepConvertDicom,
			Binary: p.cfg.Executables.Dcm2niix,
			Args:   []string{"-o", p.wd.Nifti, p.wd.Archive},
		}
		if err := p.runner.Run(ctx, inv); err != nil {
			if errors.Is(err, services.ErrCommandExecution) {
				return services.Wrap(services.ErrConversion, StepConvertDicom, "dcm2niix", "DICOM to NIfTI conversion failed", err)
			}
			return err
		}
		return nil
	})
}

// GenerateMasks segments a brain mask for every NIfTI volume.
func (p *Pipeline) GenerateMasks(ctx context.Context) error {
	return p.runStage(ctx, StepGenerateMasks, func(ctx context.Context) error {
		mount := p.docker.MountPath()
		images, err := p.containerFiles(p.wd.Nifti, mount, workdir.NiftiExtensions...)
		if err != nil {
			return err
		}
		masksDir, err := p.wd.Translate(p.wd.Masks, mount)
		if err != nil {
			return err
		}
		args := make([]string, 0, len(images)+3)
		args = append(args, "--filenames")
		args = append(args, images...)
		args = append(args, "--dir-output", masksDir)
		return p.docker.Run(ctx, StepGenerateMasks, SegmentTool, args, p.wd.Root)
	})
}

// Reconstruct builds the isotropic volume from the volumes and their masks.
// Image and mask lists are paired by position; empty lists are passed
// through and left for the tool to reject.
func (p *Pipeline) Reconstruct(ctx context.Context, opts Options) error {
	return p.runStage(ctx, StepReconstruct, func(ctx context.Context) error {
		mount := p.docker.MountPath()
		images, err := p.containerFiles(p.wd.Nifti, mount, workdir.NiftiExtensions...)
		if err != nil {
			return err
		}
		masks, err := p.containerFiles(p.wd.Masks, mount, workdir.MaskExtension)
		if err != nil {
			return err
		}
		output, err := p.wd.Translate(p.wd.NiftiOutputPath(), mount)
		if err != nil {
			return err
		}
		logging.WithContext(ctx, p.logger).Info("reconstruction inputs collected",
			logging.Int("volumes", len(images)),
			logging.Int("masks", len(masks)),
			logging.String(logging.FieldEventType, "reconstruct_inputs"),
		)
		optionArgs := opts.Args()
		args := make([]string, 0, len(images)+len(masks)+len(optionArgs)+4)
		args = append(args, "--filenames")
		args = append(args, images...)
		args = append(args, "--filenames-masks")
		args = append(args, masks...)
		args = append(args, optionArgs...)
		args = append(args, "--output", output)
		return p.docker.Run(ctx, StepReconstruct, ReconstructTool, args, p.wd.Root)
	})
}

// ConvertNiftiToDicom regenerates per-slice DICOM from the reconstructed
// volume and packages it. It returns the absolute path of the archive.
func (p *Pipeline) ConvertNiftiToDicom(ctx context.Context) (string, error) {
	result := p.wd.ResultArchivePath()
	err := p.runStage(ctx, StepConvertNifti, func(ctx context.Context) error {
		if err := workdir.Clear(p.wd.OutputDicom); err != nil {
			return fmt.Errorf("clear %s: %w", p.wd.OutputDicom, err)
		}
		inv := process.Invocation{
			Stage:  StepConvertNifti,
			Binary: p.cfg.Executables.Medcon,
			Args:   []string{"-f", p.wd.NiftiOutputPath(), "-split3d", "-c", "dicom"},
			Dir:    p.wd.OutputDicom,
		}
		if err := p.runner.Run(ctx, inv); err != nil {
			return err
		}
		logging.WithContext(ctx, p.logger).Info("packaging DICOM output",
			logging.String("archive", result),
			logging.String(logging.FieldEventType, "archive_create"),
		)
		if err := p.pack(ctx, p.wd.OutputDicom, result, archive.DicomFilter); err != nil {
			return fmt.Errorf("package %s: %w", result, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// Run executes every stage in order and returns the result archive path.
func (p *Pipeline) Run(ctx context.Context, opts Options) (string, error) {
	if err := p.ConvertDicomToNifti(ctx); err != nil {
		return "", err
	}
	if err := p.GenerateMasks(ctx); err != nil {
		return "", err
	}
	if err := p.Reconstruct(ctx, opts); err != nil {
		return "", err
	}
	return p.ConvertNiftiToDicom(ctx)
}

func (p *Pipeline) containerFiles(dir, mount string, suffixes ...string) ([]string, error) {
	files, err := workdir.SearchByExtension(dir, suffixes...)
	if err != nil {
		return nil, err
	}
	return p.wd.TranslateAll(files, mount)
}
