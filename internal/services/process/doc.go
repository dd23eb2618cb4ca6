// Package process runs external tools synchronously and classifies how they
// ended.
//
// The Supervisor pipes stdout and stderr, forwards each line to the logger as
// it arrives, and always waits for the child before returning. Carriage
// returns end a line too, and a line longer than 1 MiB is forwarded in
// pieces; output content never affects the result. Only the exit
// status decides success: a non-zero code or a fatal signal yields
// services.ErrCommandExecution carrying an *ExitError, and a binary that
// cannot be started yields services.ErrCommandSpawn. There is no timeout and
// the context never kills the child; it only carries logging fields.
package process
