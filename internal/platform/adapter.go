// Package platform isolates the operating-system specific parts of process
// control: process-group configuration, raw command-line handling, launching
// under a different credential, and recursive process-tree termination.
//
// Full tree termination is only guaranteed where the OS offers job-control
// semantics. On Windows the adapter walks the live process table by parent
// process id; that enumeration is best-effort and falls back to terminating
// just the root process when it is unavailable.
package platform

import (
	"errors"
	"os/exec"
)

// ErrCredentialUnsupported is returned by adapters that cannot launch a
// process as a different user.
var ErrCredentialUnsupported = errors.New("running as a different credential is not supported on this platform")

// Credential identifies the user a process should run as. All fields are
// opaque to the engine and passed through untouched.
type Credential struct {
	Username string
	Domain   string
	Secret   string
}

// Adapter is the capability surface the execution engine needs from the
// host platform. Implementations must be safe for concurrent use.
type Adapter interface {
	// ConfigureProcAttr prepares cmd so that KillTree can later reach the
	// whole process tree (process group on POSIX, new process group flag
	// on Windows).
	ConfigureProcAttr(cmd *exec.Cmd)

	// ConfigureRawArguments applies a pre-joined argument string to cmd.
	// On Windows the string is passed to the loader verbatim; on POSIX it
	// is split on whitespace.
	ConfigureRawArguments(cmd *exec.Cmd, executable, raw string)

	// ConfigureCredential arranges for cmd to run as cred, with that
	// user's own environment plus overrides merged on top. The returned
	// release func must be called once the process has started (or failed
	// to start) to free any identity resources.
	ConfigureCredential(cmd *exec.Cmd, cred Credential, overrides map[string]string) (release func(), err error)

	// KillTree terminates pid and, best-effort, all of its descendants.
	// Killing an already-exited process is not an error.
	KillTree(pid int) error
}

// New returns the adapter for the current platform. Construct once at
// startup and inject; callers never branch on GOOS themselves.
func New() Adapter {
	return newAdapter()
}
