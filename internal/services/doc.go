// Package services defines shared utilities consumed by the pipeline stages and
// the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp job names, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure (archive, directory, translation, spawn, execution) with
//     errors.Is while the message keeps the stage and tool that failed.
//
// The subpackages wrap the concrete executors: process supervises one host
// command, docker prefixes an invocation with the container engine run line.
package services
