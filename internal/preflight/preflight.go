package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"singleapp/internal/config"
)

// maxSocketPath is the sun_path limit on Linux, including the trailing NUL.
const maxSocketPath = 108

// socketNameLen is a UUID plus the ".sock" suffix.
const socketNameLen = 36 + len(".sock")

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check for cfg in display order.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Runtime directory", cfg.Paths.RuntimeDir),
		CheckDirectoryAccess("Lock directory", cfg.LockDir()),
		CheckDirectoryAccess("Socket directory", cfg.SocketDir()),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckSocketPathLength(cfg.SocketDir()),
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckDirectoryAccess verifies that path is a directory this process can
// read, write, and traverse.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSocketPathLength verifies that sockets published under dir fit in a
// unix socket address.
func CheckSocketPathLength(dir string) Result {
	const name = "Socket path length"
	length := len(filepath.Join(dir, "x")) - 1 + socketNameLen
	if length >= maxSocketPath {
		return Result{Name: name, Detail: fmt.Sprintf("%d bytes (error: limit is %d; use a shorter runtime_dir)", length, maxSocketPath-1)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d bytes", length)}
}
