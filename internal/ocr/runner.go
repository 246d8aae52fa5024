package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// maxStderr bounds the stderr kept on a CommandError.
const maxStderr = 8 << 10

// Command is one invocation of a poppler or tesseract binary.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandError carries the captured stderr of a failed command.
type CommandError struct {
	Cmd    Command
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Cmd.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Cmd.Name, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// stderrOf returns the captured stderr of err, or its message.
func stderrOf(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) && ce.Stderr != "" {
		return ce.Stderr
	}
	return err.Error()
}

// Runner executes external tools and returns their stdout. Tests swap it for a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	start := time.Now()
	log := r.logger.With("cmd", c.Name)
	log.Debug("ocr.exec.start", "cmd_line", c.String())

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr] + "...(truncated)"
		}
		log.Error("ocr.exec.failed", "elapsed_ms", time.Since(start).Milliseconds(), "error", err, "stderr", msg)
		return nil, &CommandError{Cmd: c, Stderr: msg, Err: err}
	}

	log.Debug("ocr.exec.ok",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	return stdout.Bytes(), nil
}
