package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"singleapp/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSocketPathLength(t *testing.T) {
	if r := CheckSocketPathLength("/run/user/1000/singleapp/sockets"); !r.Passed {
		t.Fatalf("expected short path to pass, got %s", r.Detail)
	}
	long := "/" + strings.Repeat("d", 80)
	r := CheckSocketPathLength(long)
	if r.Passed {
		t.Fatalf("expected long path to fail, got %s", r.Detail)
	}
	if !strings.Contains(r.Detail, "runtime_dir") {
		t.Fatalf("expected hint in detail, got %q", r.Detail)
	}
}

func TestRunAllAfterEnsureDirectories(t *testing.T) {
	base, err := os.MkdirTemp("", "sa")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(base) })

	cfg := config.Default()
	cfg.Paths.RuntimeDir = filepath.Join(base, "run")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if failed := Failed(RunAll(context.Background(), &cfg)); len(failed) == 0 {
		t.Fatal("expected missing directories to fail")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), &cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %+v", results)
	}
}
