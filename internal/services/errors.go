package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrArchiveInvalid    = errors.New("archive invalid")
	ErrDirectoryCreation = errors.New("directory creation failed")
	ErrPathTranslation   = errors.New("path translation failed")
	ErrCommandSpawn      = errors.New("command spawn failed")
	ErrCommandExecution  = errors.New("command execution failed")
	ErrConfiguration     = errors.New("configuration invalid")
	ErrConversion        = errors.New("conversion failed")
	ErrStagePrerequisite = errors.New("stage prerequisite missing")
	ErrDirectoryBusy     = errors.New("working directory busy")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrCommandExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the marker carried by err, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrArchiveInvalid):
		return "archive_invalid"
	case errors.Is(err, ErrDirectoryCreation):
		return "directory_creation_failed"
	case errors.Is(err, ErrPathTranslation):
		return "path_translation_failed"
	case errors.Is(err, ErrCommandSpawn):
		return "command_spawn_failed"
	case errors.Is(err, ErrConversion):
		return "conversion_failed"
	case errors.Is(err, ErrCommandExecution):
		return "command_execution_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration_invalid"
	case errors.Is(err, ErrStagePrerequisite):
		return "stage_prerequisite_missing"
	case errors.Is(err, ErrDirectoryBusy):
		return "working_directory_busy"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
