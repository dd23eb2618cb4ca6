// Package main hosts the niftymic CLI entrypoint and command graph.
//
// Each pipeline stage is exposed as its own subcommand so a failed run can be
// resumed from the working directory it left behind, and `pipeline` chains
// all four. The remaining commands inspect job directories, the stage
// history ledger, host prerequisites, and configuration. Heavy lifting lives
// in the internal packages; this package only resolves configuration, builds
// the logger, and renders results.
package main
