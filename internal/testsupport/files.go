package testsupport

import (
	"os"
	"testing"
	"time"
)

// WaitForFile polls until path exists or 10 seconds elapse.
func WaitForFile(t testing.TB, path string) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", path)
		default:
			time.Sleep(20 * time.Millisecond)
		}
	}
}

// Eventually polls cond every few milliseconds and fails the test when it is
// still false after timeout.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf(format, args...)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
