//go:build !windows

package platform

import (
	"errors"
	"os/exec"
	"strings"
	"syscall"
)

type unixAdapter struct{}

func newAdapter() Adapter {
	return unixAdapter{}
}

func (unixAdapter) ConfigureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func (unixAdapter) ConfigureRawArguments(cmd *exec.Cmd, executable, raw string) {
	args := append([]string{executable}, strings.Fields(raw)...)
	cmd.Args = args
}

// ConfigureCredential fails fast: the Windows credential model (domain +
// password logon) has no POSIX analogue, and silently running as the caller
// would be worse than refusing.
func (unixAdapter) ConfigureCredential(cmd *exec.Cmd, cred Credential, overrides map[string]string) (func(), error) {
	return nil, ErrCredentialUnsupported
}

func (unixAdapter) KillTree(pid int) error {
	// The child was started with Setpgid, so -pid reaches the whole group.
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		// Group kill failed; at least take down the root.
		if rootErr := syscall.Kill(pid, syscall.SIGKILL); rootErr != nil && !errors.Is(rootErr, syscall.ESRCH) {
			return err
		}
	}
	return nil
}
