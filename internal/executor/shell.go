// shell.go resolves the configured shell name to an absolute path.
// Only shells on the allowlist are accepted, and lookups are cached since the
// runner resolves the shell again on every reload.
package executor

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
)

// ValidShells is the allowlist of shells crontab commands may run under.
var ValidShells = []string{"sh", "bash", "dash", "zsh"}

// ShellResolver caches shell name to path lookups.
type ShellResolver struct {
	mu    sync.RWMutex
	paths map[string]string
}

// NewShellResolver creates an empty resolver.
func NewShellResolver() *ShellResolver {
	return &ShellResolver{
		paths: make(map[string]string),
	}
}

// Resolve returns the absolute path of shell. The name may be a bare name
// ("bash") or an absolute path ("/bin/bash"); in both cases its base name
// must be on the allowlist.
func (r *ShellResolver) Resolve(shell string) (string, error) {
	if !IsValidShell(filepath.Base(shell)) {
		return "", fmt.Errorf("invalid shell: %q (allowed: %v)", shell, ValidShells)
	}

	r.mu.RLock()
	path, ok := r.paths[shell]
	r.mu.RUnlock()
	if ok {
		return path, nil
	}

	path, err := exec.LookPath(shell)
	if err != nil {
		return "", fmt.Errorf("shell %q not found: %w", shell, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	r.mu.Lock()
	r.paths[shell] = path
	r.mu.Unlock()

	return path, nil
}

// IsValidShell reports whether name is on the allowlist. Matching is exact
// and case-sensitive.
func IsValidShell(name string) bool {
	return slices.Contains(ValidShells, name)
}

var defaultResolver = NewShellResolver()

// ResolveShell resolves shell using a process-wide cache.
func ResolveShell(shell string) (string, error) {
	return defaultResolver.Resolve(shell)
}
