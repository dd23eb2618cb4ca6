package config

const (
	defaultUserConfigPath = "~/.config/niftymic/config.toml"
	systemConfigPath      = "/etc/niftymic/niftymic.toml"
	projectConfigName     = "niftymic.toml"

	defaultBaseDirectory = "~/.local/share/niftymic/jobs"
	defaultLogDir        = "~/.local/share/niftymic/logs"
	defaultStateDir      = "~/.local/share/niftymic/state"

	defaultDcm2niix = "dcm2niix"
	defaultMedcon   = "medcon"
	defaultDocker   = "docker"

	defaultDockerImage    = "renbem/niftymic"
	defaultMountPath      = "/app/data"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultTwoStepCycles  = 3
	defaultAlpha          = 0.01
	defaultThresholdFirst = 0.5
	defaultThreshold      = 0.85
	defaultIsotropicResMM = 0.8
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDirectory: defaultBaseDirectory,
			LogDir:        defaultLogDir,
			StateDir:      defaultStateDir,
		},
		Executables: Executables{
			Dcm2niix: defaultDcm2niix,
			Medcon:   defaultMedcon,
			Docker:   defaultDocker,
		},
		Docker: Docker{
			Image:            defaultDockerImage,
			WorkingDirectory: defaultMountPath,
		},
		Reconstruction: Reconstruction{
			Alpha:               defaultAlpha,
			OutlierRejection:    true,
			ThresholdFirst:      defaultThresholdFirst,
			Threshold:           defaultThreshold,
			IntensityCorrection: true,
			IsotropicResolution: defaultIsotropicResMM,
			TwoStepCycles:       defaultTwoStepCycles,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Ledger: Ledger{
			Enabled: true,
		},
	}
}
