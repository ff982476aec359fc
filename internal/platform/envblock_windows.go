//go:build windows

package platform

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Resolving a user's environment block means a logon plus a profile walk,
// which is expensive; blocks are cached per credential. Machine-wide
// environment changes are not observed from here, so long-lived hosts that
// care can call FlushEnvCache.
var envCache sync.Map // "DOMAIN\username" -> []string

// FlushEnvCache discards every cached per-credential environment block.
func FlushEnvCache() {
	envCache.Range(func(key, _ any) bool {
		envCache.Delete(key)
		return true
	})
}

func userEnvironment(cred Credential, token windows.Token) ([]string, error) {
	key := cred.Domain + "\\" + cred.Username
	if cached, ok := envCache.Load(key); ok {
		return cached.([]string), nil
	}

	var block *uint16
	if err := windows.CreateEnvironmentBlock(&block, token, false); err != nil {
		return nil, fmt.Errorf("environment block for %s: %w", key, err)
	}
	defer windows.DestroyEnvironmentBlock(block)

	env := parseEnvironmentBlock(block)
	envCache.Store(key, env)
	return env, nil
}

// parseEnvironmentBlock walks a double-NUL-terminated list of NUL-terminated
// UTF-16 "NAME=value" strings.
func parseEnvironmentBlock(block *uint16) []string {
	var env []string
	at := unsafe.Pointer(block)
	for {
		entry := windows.UTF16PtrToString((*uint16)(at))
		if entry == "" {
			return env
		}
		env = append(env, entry)
		at = unsafe.Pointer(uintptr(at) + (uintptr(len(windows.StringToUTF16(entry))))*unsafe.Sizeof(*block))
	}
}

func mergeEnvironment(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		name, _, ok := strings.Cut(entry, "=")
		if ok {
			// Environment names are case-insensitive on Windows.
			if _, shadowed := lookupFold(overrides, name); shadowed {
				continue
			}
		}
		merged = append(merged, entry)
	}
	for k, v := range overrides {
		merged = append(merged, k+"="+v)
	}
	return merged
}

func lookupFold(m map[string]string, name string) (string, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
