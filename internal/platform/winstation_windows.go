//go:build windows

package platform

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                      = windows.NewLazySystemDLL("user32.dll")
	procGetProcessWindowStation = user32.NewProc("GetProcessWindowStation")
	procGetThreadDesktop        = user32.NewProc("GetThreadDesktop")
)

// grantStationAndDesktopAccess adds the token's user to the DACLs of the
// calling process's window station and the calling thread's desktop. Without
// this, a process created under a different token from a non-interactive
// session (a service) cannot initialise user32 and dies during startup.
func grantStationAndDesktopAccess(token windows.Token) error {
	user, err := token.GetTokenUser()
	if err != nil {
		return fmt.Errorf("resolve token user: %w", err)
	}
	sid := user.User.Sid

	station, _, _ := procGetProcessWindowStation.Call()
	if station != 0 {
		if err := grantAccess(windows.Handle(station), sid); err != nil {
			return fmt.Errorf("window station: %w", err)
		}
	}
	desktop, _, _ := procGetThreadDesktop.Call(uintptr(windows.GetCurrentThreadId()))
	if desktop != 0 {
		if err := grantAccess(windows.Handle(desktop), sid); err != nil {
			return fmt.Errorf("desktop: %w", err)
		}
	}
	return nil
}

func grantAccess(object windows.Handle, sid *windows.SID) error {
	sd, err := windows.GetSecurityInfo(object, windows.SE_WINDOW_OBJECT, windows.DACL_SECURITY_INFORMATION)
	if err != nil {
		return fmt.Errorf("read DACL: %w", err)
	}
	dacl, _, err := sd.DACL()
	if err != nil {
		return fmt.Errorf("extract DACL: %w", err)
	}

	grant := windows.EXPLICIT_ACCESS{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.GRANT_ACCESS,
		Inheritance:       windows.NO_INHERITANCE,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(sid),
		},
	}
	updated, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{grant}, dacl)
	if err != nil {
		return fmt.Errorf("merge DACL: %w", err)
	}

	r1, _, _ := procSetSecurityInfo.Call(
		uintptr(object),
		uintptr(windows.SE_WINDOW_OBJECT),
		uintptr(windows.DACL_SECURITY_INFORMATION),
		0,
		0,
		uintptr(unsafe.Pointer(updated)),
		0,
	)
	if r1 != 0 {
		return fmt.Errorf("write DACL: %w", syscall.Errno(r1))
	}
	return nil
}
