package config

import (
	"fmt"
	"strconv"
	"strings"

	"niftymic/internal/services"
)

// EnvPrefix prefixes every environment override, e.g. NIFTYMIC_DOCKER_IMAGE.
const EnvPrefix = "NIFTYMIC_"

type envOverride struct {
	key    string
	target *string
}

// stringOverrides lists the variable suffixes in precedence order; later
// entries win. OUTPUT_BASE_DIRECTORY is the legacy name for the job root.
func (c *Config) stringOverrides() []envOverride {
	return []envOverride{
		{"OUTPUT_BASE_DIRECTORY", &c.Paths.BaseDirectory},
		{"PATHS_BASE_DIRECTORY", &c.Paths.BaseDirectory},
		{"PATHS_LOG_DIR", &c.Paths.LogDir},
		{"PATHS_STATE_DIR", &c.Paths.StateDir},
		{"EXECUTABLES_DCM2NIIX", &c.Executables.Dcm2niix},
		{"EXECUTABLES_MEDCON", &c.Executables.Medcon},
		{"EXECUTABLES_DOCKER", &c.Executables.Docker},
		{"DOCKER_IMAGE", &c.Docker.Image},
		{"DOCKER_WORKING_DIRECTORY", &c.Docker.WorkingDirectory},
		{"LOGGING_FORMAT", &c.Logging.Format},
		{"LOGGING_LEVEL", &c.Logging.Level},
	}
}

// applyEnv overrides file values with non-empty NIFTYMIC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, override := range c.stringOverrides() {
		if value, ok := lookup(EnvPrefix + override.key); ok && strings.TrimSpace(value) != "" {
			*override.target = strings.TrimSpace(value)
		}
	}
	if value, ok := lookup(EnvPrefix + "LEDGER_ENABLED"); ok && strings.TrimSpace(value) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "", EnvPrefix+"LEDGER_ENABLED", fmt.Sprintf("invalid boolean %q", value), err)
		}
		c.Ledger.Enabled = enabled
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.Executables.Dcm2niix = strings.TrimSpace(c.Executables.Dcm2niix)
	c.Executables.Medcon = strings.TrimSpace(c.Executables.Medcon)
	c.Executables.Docker = strings.TrimSpace(c.Executables.Docker)
	c.Docker.Image = strings.TrimSpace(c.Docker.Image)
	c.Docker.WorkingDirectory = strings.TrimSpace(c.Docker.WorkingDirectory)
	if len(c.Docker.WorkingDirectory) > 1 {
		c.Docker.WorkingDirectory = strings.TrimRight(c.Docker.WorkingDirectory, "/")
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.BaseDirectory, err = expandPath(c.Paths.BaseDirectory); err != nil {
		return fmt.Errorf("paths.base_directory: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
