package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Result is what an external process leaves behind: its exit code and
// whatever it wrote to stdout and stderr.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner starts external processes. A non-zero exit is reported through
// Result.ExitCode; the error return is reserved for processes that could
// not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExitError describes a process that ran and exited non-zero.
type ExitError struct {
	Name   string
	Code   int
	Stdout string
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
}

// Err returns nil for a zero exit code and an *ExitError otherwise.
func (r Result) Err(name string) error {
	if r.ExitCode == 0 {
		return nil
	}
	return &ExitError{
		Name:   name,
		Code:   r.ExitCode,
		Stdout: strings.TrimSpace(string(r.Stdout)),
		Stderr: strings.TrimSpace(string(r.Stderr)),
	}
}

type Exec struct {
	Logger *zap.Logger
}

func NewExec(logger *zap.Logger) *Exec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{Logger: logger}
}

func (e *Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running external command", zap.String("command", name), zap.Strings("args", args))
	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when the process was killed by a signal
		result.ExitCode = exitErr.ExitCode()
		logger.Debug("external command exited non-zero", zap.String("command", name), zap.Int("exit_code", result.ExitCode))
		return result, nil
	}

	return result, fmt.Errorf("run %s: %w", name, err)
}
