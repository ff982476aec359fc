//go:build !windows

package platform

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureCredentialUnsupported(t *testing.T) {
	adapter := New()
	cmd := exec.Command("/bin/sh", "-c", "true")
	release, err := adapter.ConfigureCredential(cmd, Credential{Username: "someone", Secret: "s"}, nil)
	assert.Nil(t, release)
	assert.ErrorIs(t, err, ErrCredentialUnsupported)
}

func TestKillTreeTerminatesDescendants(t *testing.T) {
	adapter := New()

	// The shell spawns a grandchild that would outlive a plain root kill.
	cmd := exec.Command("/bin/sh", "-c", "sleep 30 & wait")
	adapter.ConfigureProcAttr(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, adapter.KillTree(cmd.Process.Pid))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("process tree survived KillTree")
	}

	// The whole group is gone, so signalling it reports no such process.
	err := syscall.Kill(-cmd.Process.Pid, syscall.Signal(0))
	assert.ErrorIs(t, err, syscall.ESRCH)
}

func TestKillTreeOnExitedProcessIsNoop(t *testing.T) {
	adapter := New()
	cmd := exec.Command("/bin/sh", "-c", "true")
	adapter.ConfigureProcAttr(cmd)
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Wait())

	assert.NoError(t, adapter.KillTree(cmd.Process.Pid))
}

func TestConfigureRawArgumentsSplitsOnWhitespace(t *testing.T) {
	adapter := New()
	cmd := exec.Command("/bin/echo")
	adapter.ConfigureRawArguments(cmd, "/bin/echo", "one  two\tthree")
	assert.Equal(t, []string{"/bin/echo", "one", "two", "three"}, cmd.Args)
}
