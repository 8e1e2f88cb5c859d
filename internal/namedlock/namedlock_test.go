package namedlock

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"singleapp/internal/testsupport"
)

func TestAcquireAndRelease(t *testing.T) {
	provider := NewProvider(filepath.Join(t.TempDir(), "nested", "locks"))

	lock := provider.NamedLock("singleapp.claim")
	ok, err := lock.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected lock to be acquired")
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release should be a no-op: %v", err)
	}

	again := provider.NamedLock("singleapp.claim")
	ok, err = again.Acquire(context.Background(), time.Second)
	if err != nil || !ok {
		t.Fatalf("expected re-acquire to succeed, ok=%v err=%v", ok, err)
	}
	defer func() { _ = again.Release() }()
}

func TestSecondHandleTimesOutInProcess(t *testing.T) {
	provider := NewProvider(t.TempDir())

	holder := provider.NamedLock("claim")
	if ok, err := holder.Acquire(context.Background(), time.Second); err != nil || !ok {
		t.Fatalf("holder Acquire: ok=%v err=%v", ok, err)
	}
	defer func() { _ = holder.Release() }()

	contender := provider.NamedLock("claim")
	start := time.Now()
	ok, err := contender.Acquire(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("contender Acquire: %v", err)
	}
	if ok {
		t.Fatal("expected contender to time out")
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("expected contender to wait for the timeout, waited %v", elapsed)
	}
	if err := contender.Release(); err != nil {
		t.Fatalf("Release after failed Acquire: %v", err)
	}
}

func TestAcquireSucceedsOnceHolderReleases(t *testing.T) {
	provider := NewProvider(t.TempDir())

	holder := provider.NamedLock("claim")
	if ok, err := holder.Acquire(context.Background(), time.Second); err != nil || !ok {
		t.Fatalf("holder Acquire: ok=%v err=%v", ok, err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = holder.Release()
	}()

	contender := provider.NamedLock("claim")
	ok, err := contender.Acquire(context.Background(), 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected contender to acquire after release, ok=%v err=%v", ok, err)
	}
	_ = contender.Release()
}

func TestAcquireHonoursContextCancellation(t *testing.T) {
	provider := NewProvider(t.TempDir())

	holder := provider.NamedLock("claim")
	if ok, err := holder.Acquire(context.Background(), time.Second); err != nil || !ok {
		t.Fatalf("holder Acquire: ok=%v err=%v", ok, err)
	}
	defer func() { _ = holder.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := provider.NamedLock("claim").Acquire(ctx, time.Second)
	if ok {
		t.Fatal("expected cancelled acquire to fail")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFileNameSanitizesSeparators(t *testing.T) {
	cases := map[string]string{
		"singleapp.claim": "singleapp.claim.lock",
		"a/b\\c":          "a_b_c.lock",
		"  ":              "default.lock",
		"..":              "default.lock",
	}
	for input, want := range cases {
		if got := fileName(input); got != want {
			t.Fatalf("fileName(%q) = %q, want %q", input, got, want)
		}
	}
}

// TestLockHeldByAnotherProcess verifies that a lock held by a child process
// blocks this process until the child exits.
func TestLockHeldByAnotherProcess(t *testing.T) {
	if os.Getenv("NAMEDLOCK_HOLD") == "1" {
		dir := os.Getenv("NAMEDLOCK_DIR")
		lock := NewProvider(dir).NamedLock("claim")
		if ok, err := lock.Acquire(context.Background(), 5*time.Second); err != nil || !ok {
			os.Exit(2)
		}
		_ = os.WriteFile(filepath.Join(dir, "ready"), []byte("1"), 0o600)
		buf := make([]byte, 1)
		_, _ = os.Stdin.Read(buf)
		return
	}

	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^TestLockHeldByAnotherProcess$")
	cmd.Env = append(os.Environ(), "NAMEDLOCK_HOLD=1", "NAMEDLOCK_DIR="+dir)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("stdin pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start subprocess: %v", err)
	}
	testsupport.WaitForFile(t, filepath.Join(dir, "ready"))

	lock := NewProvider(dir).NamedLock("claim")
	ok, err := lock.Acquire(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire while child holds lock: %v", err)
	}
	if ok {
		_ = lock.Release()
		t.Fatal("expected lock held by child to block acquisition")
	}

	_ = stdin.Close()
	_ = cmd.Wait()

	ok, err = lock.Acquire(context.Background(), 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected acquisition after child exit, ok=%v err=%v", ok, err)
	}
	_ = lock.Release()
}

// TestCrashedHolderReleasesLock kills the holder without cleanup; the kernel
// drops the flock with the process.
func TestCrashedHolderReleasesLock(t *testing.T) {
	if os.Getenv("NAMEDLOCK_HOLD") == "1" {
		dir := os.Getenv("NAMEDLOCK_DIR")
		lock := NewProvider(dir).NamedLock("claim")
		if ok, err := lock.Acquire(context.Background(), 5*time.Second); err != nil || !ok {
			os.Exit(2)
		}
		_ = os.WriteFile(filepath.Join(dir, "ready"), []byte("1"), 0o600)
		select {}
	}

	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^TestCrashedHolderReleasesLock$")
	cmd.Env = append(os.Environ(), "NAMEDLOCK_HOLD=1", "NAMEDLOCK_DIR="+dir)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start subprocess: %v", err)
	}
	testsupport.WaitForFile(t, filepath.Join(dir, "ready"))

	if err := cmd.Process.Kill(); err != nil {
		t.Fatalf("kill subprocess: %v", err)
	}
	_ = cmd.Wait()

	lock := NewProvider(dir).NamedLock("claim")
	ok, err := lock.Acquire(context.Background(), 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected acquisition after crash, ok=%v err=%v", ok, err)
	}
	_ = lock.Release()
}
