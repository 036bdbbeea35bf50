package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Exec runs short commands to completion and collects their output, for
// steps like "vagrant init" that must finish before the next one starts.
// It does not touch the Runner state machine.
type Exec struct{}

// CombinedOutput runs c and returns its interleaved stdout and stderr.
// The error includes the command line; output is returned either way.
func (Exec) CombinedOutput(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	cmd.WaitDelay = DefaultWaitDelay

	out, err := cmd.CombinedOutput()
	if errors.Is(err, exec.ErrWaitDelay) {
		err = nil
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", c.String(), err)
	}
	return out, nil
}
