// Package config loads, normalizes, and validates niftymic configuration.
//
// Configuration is read from TOML (see sample_config.toml), overlaid with
// NIFTYMIC_* environment variables, expanded so every path is absolute, and
// validated once. The resulting *Config is treated as immutable and handed to
// each component constructor; nothing in the repository reads configuration
// from package-level state.
package config
