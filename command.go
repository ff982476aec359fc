package shellfish

import (
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"

	"github.com/OctopusDeploy/Shellfish/internal/platform"
)

// Options adjusts engine behaviour for a Command.
type Options uint8

const (
	// DoNotThrowOnCancellation makes a cancelled run yield a normal Result
	// carrying whatever exit code could be salvaged, instead of re-raising
	// the cancellation as an error after cleanup.
	DoNotThrowOnCancellation Options = 1 << iota
)

// Command describes what to launch. Build it fluently, then hand it to Run
// or Start. Setters are not validated individually; conflicts (such as
// setting both argument modes) surface when an execution resolves the
// command. A Command holds no process state, so one Command may launch any
// number of independent executions, though it must not be mutated while
// executions are in flight.
type Command struct {
	executable string
	args       []string
	rawArgs    string
	hasRawArgs bool
	workdir    string
	env        map[string]string
	credential *platform.Credential
	encoding   encoding.Encoding
	stdout     []OutputTarget
	stderr     []OutputTarget
	input      InputSource
	options    Options
	log        zerolog.Logger
	adapter    platform.Adapter
}

// NewCommand starts a fluent configuration for executable.
func NewCommand(executable string) *Command {
	return &Command{
		executable: executable,
		log:        zerolog.Nop(),
		adapter:    defaultAdapter,
	}
}

// WithArguments sets structured argument tokens, encoded for the target
// platform at launch time. Mutually exclusive with WithRawArguments.
func (c *Command) WithArguments(args ...string) *Command {
	c.args = args
	return c
}

// WithRawArguments sets one pre-joined argument string passed to the OS as
// is. Mutually exclusive with WithArguments.
func (c *Command) WithRawArguments(raw string) *Command {
	c.rawArgs = raw
	c.hasRawArgs = true
	return c
}

// WithWorkingDirectory sets the child's working directory. Defaults to the
// calling process's own current directory.
func (c *Command) WithWorkingDirectory(dir string) *Command {
	c.workdir = dir
	return c
}

// WithEnvironment merges vars over the base environment: the caller's own
// when running as the same identity, or the credential user's environment
// block when running as a different one.
func (c *Command) WithEnvironment(vars map[string]string) *Command {
	if c.env == nil {
		c.env = make(map[string]string, len(vars))
	}
	for k, v := range vars {
		c.env[k] = v
	}
	return c
}

// WithCredential switches the run into different-identity mode. All three
// fields are opaque to the engine and passed through to the platform.
func (c *Command) WithCredential(username, domain, secret string) *Command {
	c.credential = &platform.Credential{Username: username, Domain: domain, Secret: secret}
	return c
}

// WithOutputEncoding overrides the text encoding used to decode the child's
// output streams before line splitting.
func (c *Command) WithOutputEncoding(enc encoding.Encoding) *Command {
	c.encoding = enc
	return c
}

// WithStdoutTarget registers targets for standard output. All registered
// targets receive every line, in registration order.
func (c *Command) WithStdoutTarget(targets ...OutputTarget) *Command {
	c.stdout = append(c.stdout, targets...)
	return c
}

// WithStderrTarget registers targets for standard error.
func (c *Command) WithStderrTarget(targets ...OutputTarget) *Command {
	c.stderr = append(c.stderr, targets...)
	return c
}

// WithInput attaches the source of lines for the child's standard input.
func (c *Command) WithInput(src InputSource) *Command {
	c.input = src
	return c
}

// WithOptions sets behavioural options.
func (c *Command) WithOptions(opts Options) *Command {
	c.options = opts
	return c
}

// WithLogger attaches a logger for lifecycle and cleanup diagnostics. The
// default logger discards everything.
func (c *Command) WithLogger(log zerolog.Logger) *Command {
	c.log = log
	return c
}

func (c *Command) validate() error {
	if c.executable == "" {
		return ErrNoExecutable
	}
	if c.hasRawArgs && len(c.args) > 0 {
		return ErrBothArgumentModes
	}
	return nil
}
