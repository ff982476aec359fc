package shellfish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/transform"

	"github.com/OctopusDeploy/Shellfish/internal/platform"
)

// The adapter is chosen once per process. Commands carry a reference so
// tests can substitute a fake.
var defaultAdapter = platform.New()

// Run resolves and launches the command, then blocks until it exits or ctx
// is cancelled. Cancellation closes the child's input, stops output reads,
// kills the whole process tree, and (unless DoNotThrowOnCancellation is set)
// re-raises the cancellation after cleanup has fully completed. The Result
// always carries an exit code; ExitCodeUnknown when none could be read.
func (c *Command) Run(ctx context.Context) (Result, error) {
	ex, err := c.Start(ctx)
	if err != nil {
		return Result{ExitCode: ExitCodeUnknown}, err
	}
	return ex.Wait()
}

// Start resolves the command and launches the process without waiting.
// Configuration errors (empty executable, both argument modes set) and
// launch errors (executable not found, authentication failure) are reported
// here; nothing is spawned when they occur.
func (c *Command) Start(ctx context.Context) (*Execution, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	// The execution owns its own copies of the mutable fields so a Command
	// can be reused across concurrent runs.
	args := append([]string(nil), c.args...)
	overrides := make(map[string]string, len(c.env))
	for k, v := range c.env {
		overrides[k] = v
	}

	cmd := exec.Command(c.executable, args...)
	cmd.Dir = c.workdir
	c.adapter.ConfigureProcAttr(cmd)
	if c.hasRawArgs {
		c.adapter.ConfigureRawArguments(cmd, c.executable, c.rawArgs)
	}

	ex := &Execution{
		cmd:     cmd,
		ctx:     ctx,
		options: c.options,
		adapter: c.adapter,
		log:     c.log.With().Str("run", uuid.NewString()).Str("executable", c.executable).Logger(),
		waitCh:  make(chan error, 1),
	}

	if c.credential == nil {
		if len(overrides) > 0 {
			env := os.Environ()
			for k, v := range overrides {
				env = append(env, k+"="+v)
			}
			cmd.Env = env
		}
	} else {
		// The platform resolves the target identity's own environment
		// instead of ours; overrides are merged on top over there.
		release, err := c.adapter.ConfigureCredential(cmd, *c.credential, overrides)
		if err != nil {
			return nil, fmt.Errorf("shellfish: configure credential: %w", err)
		}
		ex.release = release
	}

	if err := ex.wireStreams(c); err != nil {
		ex.abort()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		ex.abort()
		return nil, fmt.Errorf("shellfish: start %s: %w", c.executable, err)
	}
	ex.releaseCredential()
	ex.log.Debug().Int("pid", cmd.Process.Pid).Msg("process started")

	go func() {
		// The exit notification can fire before the stream buffers have
		// drained; waiting for the pumps first guarantees the exit code
		// is only resolved after all buffered output was delivered.
		ex.pumps.Wait()
		ex.waitCh <- cmd.Wait()
	}()

	return ex, nil
}

// Execution is a handle to one in-flight run. It exclusively owns the native
// process, its streams, and the input actor until Wait returns. Wait must be
// called exactly once.
type Execution struct {
	cmd     *exec.Cmd
	ctx     context.Context
	options Options
	adapter platform.Adapter
	log     zerolog.Logger

	pipes  []io.Closer
	pumps  sync.WaitGroup
	actor  *inputActor
	unsub  func()

	release     func()
	releaseOnce sync.Once

	inputOnce sync.Once
	pipesOnce sync.Once

	waitCh chan error
}

func (e *Execution) wireStreams(c *Command) error {
	if len(c.stdout) > 0 {
		pipe, err := e.cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("shellfish: stdout pipe: %w", err)
		}
		e.startPump(pipe, c, c.stdout, "stdout")
	}
	if len(c.stderr) > 0 {
		pipe, err := e.cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("shellfish: stderr pipe: %w", err)
		}
		e.startPump(pipe, c, c.stderr, "stderr")
	}
	if c.input != nil {
		pipe, err := e.cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("shellfish: stdin pipe: %w", err)
		}
		e.actor = newInputActor(pipe, e.log)
		unsub, err := c.input.Subscribe(e.actor)
		if err != nil {
			return err
		}
		e.unsub = unsub
	}
	return nil
}

func (e *Execution) startPump(pipe io.ReadCloser, c *Command, targets []OutputTarget, stream string) {
	e.pipes = append(e.pipes, pipe)
	var r io.Reader = pipe
	if c.encoding != nil {
		r = transform.NewReader(pipe, c.encoding.NewDecoder())
	}
	e.pumps.Add(1)
	go func() {
		defer e.pumps.Done()
		pumpLines(r, targets, e.log, stream)
	}()
}

// Wait blocks until the first of "process exited" and "cancellation
// requested", then finalises the run. A cancellation registered before Wait
// began always wins the race.
func (e *Execution) Wait() (Result, error) {
	if e.ctx.Done() == nil {
		// No cancellation signal was supplied; skip the race entirely.
		return e.complete(<-e.waitCh)
	}
	if e.ctx.Err() != nil {
		return e.cancel()
	}
	select {
	case err := <-e.waitCh:
		return e.complete(err)
	case <-e.ctx.Done():
		return e.cancel()
	}
}

func (e *Execution) complete(waitErr error) (Result, error) {
	e.finalizeInput()
	code := e.exitCode()
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// Stream faults after exit are contained; the run still resolves.
		e.log.Warn().Err(waitErr).Msg("wait reported a non-exit error")
	}
	e.log.Debug().Int("exitCode", code).Msg("process exited")
	return Result{ExitCode: code}, nil
}

// cancel tears the run down in a fixed order: stop in-flight output reads,
// close the child's input (many interactive programs exit cleanly on
// end-of-input), then unconditionally kill the process tree. The child
// winning the race and exiting on its own in between is tolerated; killing
// an already-exited process is a no-op.
func (e *Execution) cancel() (Result, error) {
	e.log.Debug().Msg("cancellation requested")
	e.closePipes()
	e.finalizeInput()

	pid := e.cmd.Process.Pid
	if err := e.adapter.KillTree(pid); err != nil {
		e.log.Warn().Err(err).Int("pid", pid).Msg("tree kill failed, killing root only")
		if rootErr := e.cmd.Process.Kill(); rootErr != nil && !errors.Is(rootErr, os.ErrProcessDone) {
			e.log.Warn().Err(rootErr).Int("pid", pid).Msg("root kill failed")
		}
	}

	// The process is dead (or died on its own) and the pipes are closed,
	// so the wait is guaranteed to resolve.
	waitErr := <-e.waitCh
	if waitErr != nil {
		e.log.Debug().Err(waitErr).Msg("wait after cancellation")
	}

	code := e.exitCode()
	if e.options&DoNotThrowOnCancellation != 0 {
		return Result{ExitCode: code}, nil
	}
	return Result{ExitCode: code}, fmt.Errorf("shellfish: execution cancelled: %w", e.ctx.Err())
}

// abort releases everything acquired during a Start that never launched.
func (e *Execution) abort() {
	e.releaseCredential()
	e.closePipes()
	e.finalizeInput()
}

// finalizeInput completes the actor (closing the child's input stream) and
// detaches it from the InputSource so the source is free for a later run.
// Runs on every terminal path, cancellation included.
func (e *Execution) finalizeInput() {
	e.inputOnce.Do(func() {
		if e.actor != nil {
			e.actor.OnCompleted()
		}
		if e.unsub != nil {
			e.unsub()
		}
	})
}

func (e *Execution) closePipes() {
	e.pipesOnce.Do(func() {
		for _, pipe := range e.pipes {
			_ = pipe.Close()
		}
	})
}

func (e *Execution) releaseCredential() {
	e.releaseOnce.Do(func() {
		if e.release != nil {
			e.release()
		}
	})
}

// exitCode reads the exit status defensively: a process that never started
// or whose handle is gone yields ExitCodeUnknown rather than an error.
func (e *Execution) exitCode() int {
	state := e.cmd.ProcessState
	if state == nil {
		return ExitCodeUnknown
	}
	return state.ExitCode()
}
