// Package logging assembles structured slog loggers and formatting helpers used
// across niftymic.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with the job name, stage, and correlation ID. Captured output
// from external tools flows through the same loggers, one record per line.
package logging
