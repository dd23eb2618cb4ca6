package config

import (
	"fmt"
	"path"
	"strings"

	"niftymic/internal/services"
)

// Validate ensures the configuration is usable. Every failure carries the
// services.ErrConfiguration marker.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExecutables(); err != nil {
		return err
	}
	if err := c.validateDocker(); err != nil {
		return err
	}
	if err := c.validateReconstruction(); err != nil {
		return err
	}
	return c.validateLogging()
}

func invalid(field, message string) error {
	return services.Wrap(services.ErrConfiguration, "", field, message, nil)
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BaseDirectory) == "" {
		return invalid("paths.base_directory", "must be set")
	}
	return nil
}

func (c *Config) validateExecutables() error {
	checks := []struct {
		field string
		value string
	}{
		{"executables.dcm2niix", c.Executables.Dcm2niix},
		{"executables.medcon", c.Executables.Medcon},
		{"executables.docker", c.Executables.Docker},
	}
	for _, check := range checks {
		if check.value == "" {
			return invalid(check.field, "must name an executable")
		}
	}
	return nil
}

func (c *Config) validateDocker() error {
	if c.Docker.Image == "" {
		return invalid("docker.image", "must be set")
	}
	mount := c.Docker.WorkingDirectory
	if mount == "" || !path.IsAbs(mount) {
		return invalid("docker.working_directory", fmt.Sprintf("must be an absolute container path, got %q", mount))
	}
	if strings.Contains(mount, ":") {
		return invalid("docker.working_directory", "must not contain ':'")
	}
	return nil
}

func (c *Config) validateReconstruction() error {
	r := c.Reconstruction
	if r.Alpha <= 0 {
		return invalid("reconstruction.alpha", "must be positive")
	}
	if r.ThresholdFirst < 0 || r.ThresholdFirst > 1 {
		return invalid("reconstruction.threshold_first", "must be within [0, 1]")
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return invalid("reconstruction.threshold", "must be within [0, 1]")
	}
	if r.IsotropicResolution <= 0 {
		return invalid("reconstruction.isotropic_resolution", "must be positive")
	}
	if r.TwoStepCycles < 0 {
		return invalid("reconstruction.two_step_cycles", "must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return invalid("logging.level", fmt.Sprintf("unsupported value %q", c.Logging.Level))
	}
}
