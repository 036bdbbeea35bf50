// Package runner supervises one external process at a time and relays its
// output line by line while it runs.
//
// A Runner moves through Idle → Starting → Running → {Completed | Failed |
// Killed} → Idle. Start is rejected with ErrBusy unless the runner is Idle,
// so at most one process exists per Runner. The completion callback fires
// exactly once per accepted Start, including when the launch itself fails.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/status"
)

// ErrBusy is returned by Start while a process is starting or running.
var ErrBusy = errors.New("a process is already running")

// maxLineSize bounds a single relayed output line.
const maxLineSize = 1024 * 1024

// DefaultWaitDelay is how long output is still relayed after the process
// exits. Descendants that keep stdout or stderr open past it are cut off.
const DefaultWaitDelay = 2 * time.Second

// Stream identifies which output stream a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Sink receives output lines without their trailing newline.
// Line may be called concurrently for the two streams.
type Sink interface {
	Line(stream Stream, line string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(stream Stream, line string)

// Line implements Sink.
func (f SinkFunc) Line(stream Stream, line string) { f(stream, line) }

// Command describes an external process.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string
	// Args are the arguments after Name.
	Args []string
	// Dir is the working directory. The runner never changes the working
	// directory of the current process.
	Dir string
	// Env entries are appended to the current environment.
	Env []string
}

// Argv returns Name followed by Args.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String returns the command line, space separated.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result describes how a run ended.
type Result struct {
	Command Command
	Phase   v1alpha1.RunPhase
	// ExitCode is the process exit status, or -1 if the process never
	// started or was terminated by a signal.
	ExitCode   int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.Phase == v1alpha1.RunPhaseCompleted
}

// CompletionFunc is called once when a run ends.
type CompletionFunc func(Result)

// LaunchError is returned by Start when the process could not be launched.
type LaunchError struct {
	Command Command
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Command.String(), e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Runner runs at most one external process at a time.
type Runner struct {
	sink   Sink
	logger zerolog.Logger

	// WaitDelay overrides DefaultWaitDelay when positive. Set it before
	// the first Start.
	WaitDelay time.Duration

	mu            sync.Mutex
	status        v1alpha1.RunStatus
	cmd           *exec.Cmd
	stopRequested bool
	done          chan struct{}
}

// New creates an idle Runner that relays output to sink.
func New(sink Sink, logger zerolog.Logger) *Runner {
	if sink == nil {
		sink = SinkFunc(func(Stream, string) {})
	}
	done := make(chan struct{})
	close(done)
	return &Runner{
		sink:   sink,
		logger: logger.With().Str("component", "runner").Logger(),
		status: v1alpha1.RunStatus{Phase: v1alpha1.RunPhaseIdle},
		done:   done,
	}
}

// Start launches c and returns once the process is running.
//
// It returns ErrBusy without side effects if a run is in progress. If the
// process cannot be launched the run is marked Failed, onComplete fires, and
// a *LaunchError is returned. Cancelling ctx after a successful Start
// kills the process.
func (r *Runner) Start(ctx context.Context, c Command, onComplete CompletionFunc) error {
	r.mu.Lock()
	if err := status.TransitionToStarting(&r.status); err != nil {
		r.mu.Unlock()
		return ErrBusy
	}
	r.stopRequested = false
	r.done = make(chan struct{})
	done := r.done

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	setProcessGroup(cmd)
	cmd.WaitDelay = r.waitDelay()

	// The process writes into pipes the relay goroutines read. Wait does
	// not depend on them reaching EOF, so descendants holding the output
	// open cannot keep the run alive.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		_ = stdoutR.Close()
		_ = stderrR.Close()

		launchErr := &LaunchError{Command: c, Err: err}
		_ = status.TransitionToFailed(&r.status, nil, "LaunchFailed", launchErr.Error())
		res := r.resultLocked(c)
		res.Err = launchErr
		r.mu.Unlock()

		r.logger.Error().Err(err).Str("command", c.String()).Msg("launch failed")
		r.finish(res, onComplete, done)
		return launchErr
	}

	_ = status.TransitionToRunning(&r.status)
	r.cmd = cmd
	r.mu.Unlock()

	r.logger.Debug().Str("command", c.String()).Str("dir", c.Dir).Int("pid", cmd.Process.Pid).Msg("process started")

	go r.supervise(ctx, c, cmd, outputPipes{stdoutR, stdoutW, stderrR, stderrW}, onComplete, done)
	return nil
}

func (r *Runner) waitDelay() time.Duration {
	if r.WaitDelay > 0 {
		return r.WaitDelay
	}
	return DefaultWaitDelay
}

// outputPipes connect the process output to the relay goroutines.
type outputPipes struct {
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter
}

func (r *Runner) supervise(ctx context.Context, c Command, cmd *exec.Cmd, p outputPipes, onComplete CompletionFunc, done chan struct{}) {
	stop := context.AfterFunc(ctx, func() {
		r.logger.Debug().Str("command", c.String()).Msg("context cancelled, killing process")
		r.RequestKill()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go r.relay(Stdout, p.stdoutR, &wg)
	go r.relay(Stderr, p.stderrR, &wg)

	// Wait returns once the process has exited and its output is copied,
	// or WaitDelay after the exit if a descendant still holds the output.
	waitErr := cmd.Wait()
	stop()
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		r.logger.Debug().Str("command", c.String()).Msg("output still open after exit, relay cut off")
		waitErr = nil
	}

	// Everything copied so far is relayed before completion.
	_ = p.stdoutW.Close()
	_ = p.stderrW.Close()
	wg.Wait()

	r.mu.Lock()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	switch {
	case waitErr == nil:
		_ = status.TransitionToCompleted(&r.status)
	case r.stopRequested:
		_ = status.TransitionToKilled(&r.status, exitCode)
	default:
		var code *int
		if exitCode >= 0 {
			code = &exitCode
		}
		_ = status.TransitionToFailed(&r.status, code, "NonZeroExit", waitErr.Error())
	}
	res := r.resultLocked(c)
	if res.Phase == v1alpha1.RunPhaseFailed {
		res.Err = waitErr
	}
	r.cmd = nil
	r.mu.Unlock()

	r.logger.Debug().Str("command", c.String()).Str("phase", string(res.Phase)).Int("exitCode", res.ExitCode).Msg("process finished")
	r.finish(res, onComplete, done)
}

func (r *Runner) relay(stream Stream, rd io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		r.sink.Line(stream, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn().Err(err).Str("stream", string(stream)).Msg("output relay stopped")
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, rd)
	}
}

// resultLocked builds a Result from the current status. r.mu must be held.
func (r *Runner) resultLocked(c Command) Result {
	res := Result{
		Command:    c,
		Phase:      r.status.Phase,
		ExitCode:   -1,
		StartedAt:  r.status.StartTime.Time,
		FinishedAt: r.status.CompletionTime.Time,
	}
	if r.status.ExitCode != nil {
		res.ExitCode = *r.status.ExitCode
	}
	return res
}

// finish fires the callback outside the lock, then returns to Idle.
func (r *Runner) finish(res Result, onComplete CompletionFunc, done chan struct{}) {
	if onComplete != nil {
		onComplete(res)
	}

	r.mu.Lock()
	_ = status.TransitionToIdle(&r.status)
	r.mu.Unlock()
	close(done)
}

// RequestStop asks the running process group to terminate (SIGTERM).
// It reports whether a signal was sent; it is a no-op unless Running.
func (r *Runner) RequestStop() bool {
	return r.signal(terminate, "stop")
}

// RequestKill forcibly kills the running process group (SIGKILL).
// It reports whether a signal was sent; it is a no-op unless Running.
func (r *Runner) RequestKill() bool {
	return r.signal(kill, "kill")
}

func (r *Runner) signal(send func(*os.Process) error, what string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Phase != v1alpha1.RunPhaseRunning || r.cmd == nil || r.cmd.Process == nil {
		return false
	}
	r.stopRequested = true
	if err := send(r.cmd.Process); err != nil {
		r.logger.Debug().Err(err).Str("signal", what).Msg("signal not delivered")
		return false
	}
	return true
}

// State returns a copy of the current run status.
func (r *Runner) State() v1alpha1.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.status.DeepCopy()
}

// Phase returns the current phase.
func (r *Runner) Phase() v1alpha1.RunPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.Phase
}

// Done returns a channel closed when the current run has completed and
// the runner is Idle again. For an idle runner the channel is already closed.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Wait blocks until the current run is over or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	select {
	case <-r.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
