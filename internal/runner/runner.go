// Package runner executes external analysis tools with a bounded timeout and
// reports every outcome, including failure to start, as data.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultTimeout applies when Options.Timeout is zero.
	DefaultTimeout = 60 * time.Second

	// ExitNotFound is reported when the executable cannot be located or started.
	ExitNotFound = 127

	// ExitTimeout is reported when the process was killed for exceeding its timeout.
	ExitTimeout = -1

	// defaultWaitDelay bounds how long Run waits for output pipes after the
	// process is killed.
	defaultWaitDelay = 2 * time.Second
)

// Options describes one tool invocation.
type Options struct {
	Command []string
	Dir     string
	Timeout time.Duration
}

// String renders the command line for logs and messages.
func (o Options) String() string {
	return strings.Join(o.Command, " ")
}

// Result is the outcome of a single invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// NotFound reports whether the executable could not be started.
func (r Result) NotFound() bool {
	return r.ExitCode == ExitNotFound
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, opts Options) Result
}

// Exec runs commands as child processes. At most one child is outstanding at
// any time, no matter how many goroutines call Run.
type Exec struct {
	sem       *semaphore.Weighted
	waitDelay time.Duration
}

// New returns an Exec runner.
func New() *Exec {
	return &Exec{
		sem:       semaphore.NewWeighted(1),
		waitDelay: defaultWaitDelay,
	}
}

// Run executes opts.Command in opts.Dir. It never returns an error: a missing
// executable yields ExitNotFound, a timeout yields TimedOut with ExitTimeout
// and whatever output was captured before the kill.
func (e *Exec) Run(ctx context.Context, opts Options) Result {
	if len(opts.Command) == 0 {
		return Result{ExitCode: 1, Stderr: "no command provided"}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Result{ExitCode: ExitTimeout, TimedOut: true, Stderr: err.Error()}
	}
	defer e.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = e.waitDelay
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		// A killed process reports "signal: killed", so check the deadline explicitly.
		res.TimedOut = true
		res.ExitCode = ExitTimeout
	case err == nil:
		res.ExitCode = 0
	default:
		res.ExitCode = exitCode(err)
		if res.ExitCode == ExitNotFound && res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}

	log.WithFields(log.Fields{
		"cmd":      opts.String(),
		"dir":      opts.Dir,
		"exit":     res.ExitCode,
		"timedOut": res.TimedOut,
		"duration": res.Duration.Round(time.Millisecond),
	}).Debug("tool finished")

	return res
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		// Terminated by a signal we did not send.
		return 1
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return ExitNotFound
	}
	return 1
}
