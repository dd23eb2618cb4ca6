// Package ledger keeps a SQLite history of pipeline stage runs.
//
// The pipeline reports every finished stage through pipeline.Recorder; the
// Store implements it and backs the CLI history and list views. The working
// directory on disk stays the source of truth for what a job has produced.
// The ledger only remembers who ran what, when, and how it ended.
package ledger
