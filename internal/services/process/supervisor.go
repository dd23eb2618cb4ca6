package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"niftymic/internal/logging"
	"niftymic/internal/services"
)

const maxLineBytes = 1 << 20

// Invocation describes one external command.
type Invocation struct {
	Stage  string
	Binary string
	Args   []string
	// Dir overrides the child's working directory when set.
	Dir string
}

// CommandLine renders the invocation for logs.
func (inv Invocation) CommandLine() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, inv.Binary)
	for _, arg := range inv.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Runner executes an invocation to completion.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExitError records how a child terminated unsuccessfully.
type ExitError struct {
	Stage  string
	Code   int
	Signal string
}

func (e *ExitError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("%s terminated by signal %s", e.Stage, e.Signal)
	}
	return fmt.Sprintf("%s exited with status %d", e.Stage, e.Code)
}

// Supervisor is the Runner used outside tests.
type Supervisor struct {
	logger *slog.Logger
}

// NewSupervisor constructs a Supervisor. A nil logger discards output.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logging.NewComponentLogger(logger, "process")}
}

// Run starts the invocation, streams its output, and waits for it to exit.
func (s *Supervisor) Run(ctx context.Context, inv Invocation) error {
	logger := logging.WithContext(ctx, s.logger)
	if strings.TrimSpace(inv.Binary) == "" {
		return services.Wrap(services.ErrCommandSpawn, inv.Stage, "start", "binary not configured", nil)
	}

	cmd := exec.Command(inv.Binary, inv.Args...) //nolint:gosec
	cmd.Dir = inv.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrCommandSpawn, inv.Stage, "stdout pipe", inv.Binary, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrCommandSpawn, inv.Stage, "stderr pipe", inv.Binary, err)
	}

	logger.Info("running command",
		logging.String("command", inv.CommandLine()),
		logging.String("dir", inv.Dir),
		logging.String(logging.FieldEventType, "command_start"),
	)
	started := time.Now()
	if err := cmd.Start(); err != nil {
		logging.ErrorWithContext(logger, "command failed to start", "command_spawn_failed",
			logging.String("binary", inv.Binary),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the executable is installed and on PATH"),
		)
		return services.Wrap(services.ErrCommandSpawn, inv.Stage, "start", inv.Binary, err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader, stream string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		scanner.Split(scanOutputLines)
		for scanner.Scan() {
			logger.Info(scanner.Text(),
				logging.String("stream", stream),
				logging.String(logging.FieldEventType, "command_output"),
			)
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("command output no longer forwarded",
				logging.String("stream", stream),
				logging.Error(err),
				logging.String(logging.FieldEventType, "command_output_lost"),
			)
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdout, "stdout")
	go scan(stderr, "stderr")
	wg.Wait()

	waitErr := cmd.Wait()
	elapsed := time.Since(started)
	if waitErr == nil {
		logger.Info("command finished",
			logging.String("binary", inv.Binary),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldEventType, "command_complete"),
		)
		return nil
	}

	exitErr := classify(inv.Stage, waitErr)
	logging.ErrorWithContext(logger, "command failed", "command_failed",
		logging.String("binary", inv.Binary),
		logging.Int("exit_code", exitCode(exitErr)),
		logging.Duration("duration", elapsed),
		logging.Error(exitErr),
		logging.String(logging.FieldErrorHint, "inspect the command output above"),
	)
	return services.Wrap(services.ErrCommandExecution, inv.Stage, inv.Binary, "", exitErr)
}

// scanOutputLines splits on \n, \r\n or a bare \r so progress bars redrawn
// in place still produce records. Lines longer than maxLineBytes are emitted
// in maxLineBytes chunks.
func scanOutputLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF || len(data) >= maxLineBytes {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if len(data) >= maxLineBytes {
		return maxLineBytes, data[:maxLineBytes], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

func classify(stage string, err error) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("wait: %w", err)
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return &ExitError{Stage: stage, Code: -1, Signal: status.Signal().String()}
	}
	return &ExitError{Stage: stage, Code: exitErr.ExitCode()}
}
