//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/OctopusDeploy/Shellfish/internal/winquote"
)

type windowsAdapter struct{}

func newAdapter() Adapter {
	return windowsAdapter{}
}

func (windowsAdapter) ConfigureProcAttr(cmd *exec.Cmd) {
	attr := ensureSysProcAttr(cmd)
	attr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

func (windowsAdapter) ConfigureRawArguments(cmd *exec.Cmd, executable, raw string) {
	attr := ensureSysProcAttr(cmd)
	attr.CmdLine = winquote.Join([]string{executable}) + " " + raw
}

func (windowsAdapter) KillTree(pid int) error {
	children, err := childProcesses(uint32(pid))
	if err != nil {
		// Enumeration unavailable; terminate the root only.
		return terminate(uint32(pid))
	}
	for _, child := range children {
		_ = windowsAdapter{}.KillTree(int(child))
	}
	return terminate(uint32(pid))
}

func ensureSysProcAttr(cmd *exec.Cmd) *syscall.SysProcAttr {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	return cmd.SysProcAttr
}

func childProcesses(parent uint32) ([]uint32, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("snapshot process table: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	var children []uint32
	if err := windows.Process32First(snapshot, &entry); err != nil {
		return nil, fmt.Errorf("walk process table: %w", err)
	}
	for {
		if entry.ParentProcessID == parent && entry.ProcessID != parent {
			children = append(children, entry.ProcessID)
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}
	return children, nil
}

func terminate(pid uint32) error {
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, pid)
	if err != nil {
		// Already gone, or inaccessible; either way there is nothing
		// further to do here.
		return nil
	}
	defer windows.CloseHandle(handle)
	if err := windows.TerminateProcess(handle, 1); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	return nil
}
