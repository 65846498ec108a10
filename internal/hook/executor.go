package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitDelay bounds how long a killed hook's children may hold its output
// open.
const waitDelay = 500 * time.Millisecond

// ErrTimeout is returned when a hook runs longer than the executor allows.
var ErrTimeout = errors.New("hook timed out")

// Executor runs hooks with a time limit.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor that kills hooks after timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute runs h in its own directory with ev on stdin and parses its
// stdout as a Response. A hook that reports failure is not an error here;
// check Response.Success.
func (e *Executor) Execute(ctx context.Context, h *Hook, ev *Event) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	input, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.Executable)
	cmd.Dir = h.Path
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("run hook %s: %w, stderr: %s", h.Manifest.Name, err, stderr.String())
		}
		return nil, fmt.Errorf("run hook %s: %w", h.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse hook response: %w, stdout: %s", err, stdout.String())
	}
	return &resp, nil
}
