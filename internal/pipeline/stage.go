package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"niftymic/internal/workdir"
)

// Stage is how far a working directory has progressed.
type Stage int

const (
	Initialized Stage = iota
	DicomConverted
	MasksGenerated
	Reconstructed
	DicomRegenerated
)

var stageNames = [...]string{
	Initialized:      "initialized",
	DicomConverted:   "dicom_converted",
	MasksGenerated:   "masks_generated",
	Reconstructed:    "reconstructed",
	DicomRegenerated: "dicom_regenerated",
}

// Step names identify the operation that moves a directory into a stage.
const (
	StepConvertDicom  = "convert_dicom"
	StepGenerateMasks = "generate_masks"
	StepReconstruct   = "reconstruct"
	StepConvertNifti  = "convert_nifti"
)

var stageSteps = [...]string{
	DicomConverted:   StepConvertDicom,
	MasksGenerated:   StepGenerateMasks,
	Reconstructed:    StepReconstruct,
	DicomRegenerated: StepConvertNifti,
}

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	return []Stage{Initialized, DicomConverted, MasksGenerated, Reconstructed, DicomRegenerated}
}

func (s Stage) valid() bool {
	return s >= Initialized && s <= DicomRegenerated
}

func (s Stage) String() string {
	if !s.valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Label is the human-readable name, e.g. "Masks Generated".
func (s Stage) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(s.String(), "_", " "))
}

// Step names the operation that produces s. Initialized has none.
func (s Stage) Step() string {
	if s <= Initialized || !s.valid() {
		return ""
	}
	return stageSteps[s]
}

// Prerequisite is the stage a directory must have reached before the step
// producing s can run.
func (s Stage) Prerequisite() Stage {
	if s <= Initialized {
		return Initialized
	}
	return s - 1
}

// ParseStage accepts stage names ("masks_generated") and step names
// ("generate_masks"), case-insensitively.
func ParseStage(value string) (Stage, error) {
	normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(value, "-", "_")))
	for _, s := range Stages() {
		if normalized == s.String() || (normalized != "" && normalized == s.Step()) {
			return s, nil
		}
	}
	return Initialized, fmt.Errorf("unknown stage %q", value)
}

// Detect infers the furthest completed stage from what is on disk.
func Detect(inv workdir.Inventory) Stage {
	switch {
	case inv.HasResultArchive:
		return DicomRegenerated
	case inv.HasOutputNifti:
		return Reconstructed
	case inv.MaskFiles > 0:
		return MasksGenerated
	case inv.NiftiFiles > 0:
		return DicomConverted
	default:
		return Initialized
	}
}
