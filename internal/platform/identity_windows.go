//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	advapi32             = windows.NewLazySystemDLL("advapi32.dll")
	procLogonUserW       = advapi32.NewProc("LogonUserW")
	procSetSecurityInfo  = advapi32.NewProc("SetSecurityInfo")
	userenv              = windows.NewLazySystemDLL("userenv.dll")
	procLoadUserProfileW = userenv.NewProc("LoadUserProfileW")
)

const (
	logon32LogonInteractive = 2
	logon32ProviderDefault  = 0

	// PI_NOUI: never pop profile-error dialogs in a library.
	profileNoUI = 1
)

// ConfigureCredential authenticates cred, loads that user's profile, swaps
// cmd's environment for the user's own environment block (with overrides
// merged on top), and attaches the logon token so the process is created as
// that user. Window-station and desktop rights are granted best-effort so a
// non-interactive host (a service) can still launch interactive-capable
// children.
func (windowsAdapter) ConfigureCredential(cmd *exec.Cmd, cred Credential, overrides map[string]string) (func(), error) {
	token, err := logonUser(cred)
	if err != nil {
		return nil, err
	}
	if err := loadUserProfile(token, cred.Username); err != nil {
		token.Close()
		return nil, err
	}

	// Best-effort: without these grants a child launched from a service
	// session cannot attach to the window station, but failure to adjust
	// the DACL must not block the launch itself.
	_ = grantStationAndDesktopAccess(token)

	env, err := userEnvironment(cred, token)
	if err != nil {
		token.Close()
		return nil, err
	}
	cmd.Env = mergeEnvironment(env, overrides)

	attr := ensureSysProcAttr(cmd)
	attr.Token = syscall.Token(token)

	// The token is duplicated into the new process at creation time; the
	// profile stays loaded for the lifetime of this process and is
	// refcounted by the OS across runs.
	return func() {
		attr.Token = 0
		token.Close()
	}, nil
}

func logonUser(cred Credential) (windows.Token, error) {
	domain := cred.Domain
	if domain == "" {
		domain = "."
	}
	userPtr, err := windows.UTF16PtrFromString(cred.Username)
	if err != nil {
		return 0, fmt.Errorf("encode username: %w", err)
	}
	domainPtr, err := windows.UTF16PtrFromString(domain)
	if err != nil {
		return 0, fmt.Errorf("encode domain: %w", err)
	}
	secretPtr, err := windows.UTF16PtrFromString(cred.Secret)
	if err != nil {
		return 0, fmt.Errorf("encode secret: %w", err)
	}

	var token windows.Token
	r1, _, e1 := procLogonUserW.Call(
		uintptr(unsafe.Pointer(userPtr)),
		uintptr(unsafe.Pointer(domainPtr)),
		uintptr(unsafe.Pointer(secretPtr)),
		logon32LogonInteractive,
		logon32ProviderDefault,
		uintptr(unsafe.Pointer(&token)),
	)
	if r1 == 0 {
		return 0, fmt.Errorf("logon as %s\\%s: %w", domain, cred.Username, e1)
	}
	return token, nil
}

type profileInfo struct {
	Size        uint32
	Flags       uint32
	UserName    *uint16
	ProfilePath *uint16
	DefaultPath *uint16
	ServerName  *uint16
	PolicyPath  *uint16
	Profile     windows.Handle
}

func loadUserProfile(token windows.Token, username string) error {
	namePtr, err := windows.UTF16PtrFromString(username)
	if err != nil {
		return fmt.Errorf("encode username: %w", err)
	}
	info := profileInfo{
		Flags:    profileNoUI,
		UserName: namePtr,
	}
	info.Size = uint32(unsafe.Sizeof(info))
	r1, _, e1 := procLoadUserProfileW.Call(
		uintptr(token),
		uintptr(unsafe.Pointer(&info)),
	)
	if r1 == 0 {
		return fmt.Errorf("load profile for %s: %w", username, e1)
	}
	return nil
}
