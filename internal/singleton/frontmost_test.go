package singleton_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"singleapp/internal/singleton"
	"singleapp/internal/testsupport"
)

func TestSignalUIReadyFiresSubscribersOncePerCall(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", false))

	var first, second atomic.Int32
	c.OnBringToFront(func() { first.Add(1) })
	cancel := c.OnBringToFront(func() { second.Add(1) })

	if err := c.SignalUIReady(); err != nil {
		t.Fatalf("SignalUIReady: %v", err)
	}
	if c.CurrentState() != singleton.StateUIMode {
		t.Fatalf("expected ui mode, got %s", c.CurrentState())
	}
	if first.Load() != 1 || second.Load() != 1 {
		t.Fatalf("expected one notification each, got %d and %d", first.Load(), second.Load())
	}

	cancel()
	if err := c.SignalUIReady(); err != nil {
		t.Fatalf("SignalUIReady: %v", err)
	}
	if first.Load() != 2 {
		t.Fatalf("expected second call to notify again, got %d", first.Load())
	}
	if second.Load() != 1 {
		t.Fatalf("expected cancelled subscriber to stay quiet, got %d", second.Load())
	}
}

func TestEnsureUIRunningFailsWhenStuckStarting(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", false)
	opts.Timing.HandoffWait = 40 * time.Millisecond
	opts.Timing.HandoffGrace = 10 * time.Millisecond
	c := mustClaim(t, opts)

	start := time.Now()
	err := c.EnsureUIRunningAndInFront(context.Background())
	elapsed := time.Since(start)

	var timeout *singleton.HandoffTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected HandoffTimeoutError, got %v", err)
	}
	if timeout.State != singleton.StateStarting {
		t.Fatalf("expected stuck state starting, got %s", timeout.State)
	}
	if timeout.Process != "editor" {
		t.Fatalf("expected process name in error, got %q", timeout.Process)
	}
	if !errors.Is(err, singleton.ErrHandoffTimeout) {
		t.Fatal("expected errors.Is ErrHandoffTimeout")
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("expected to wait for the bound plus grace, waited %v", elapsed)
	}
}

func TestEnsureUIRunningReportsExiting(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))

	c.RequestExit()
	if err := c.RunUntilExit(context.Background(), failUI(t)); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}

	err := c.EnsureUIRunningAndInFront(context.Background())
	var timeout *singleton.HandoffTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected HandoffTimeoutError, got %v", err)
	}
	if timeout.State != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", timeout.State)
	}
}

func TestEnsureUIRunningInUIModeJustNotifies(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", false))
	if err := c.SignalUIReady(); err != nil {
		t.Fatalf("SignalUIReady: %v", err)
	}

	var fronted atomic.Int32
	c.OnBringToFront(func() { fronted.Add(1) })
	if err := c.EnsureUIRunningAndInFront(context.Background()); err != nil {
		t.Fatalf("EnsureUIRunningAndInFront: %v", err)
	}
	if fronted.Load() != 1 {
		t.Fatalf("expected one notification, got %d", fronted.Load())
	}
}

func TestEnsureUIRunningStartsUIFromServerMode(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", true)
	opts.Timing.HandoffWait = time.Second
	c := mustClaim(t, opts)

	release := make(chan struct{})
	done := startLoop(t, c, func(context.Context) error {
		if err := c.SignalUIReady(); err != nil {
			return err
		}
		<-release
		return nil
	})

	if err := c.EnsureUIRunningAndInFront(context.Background()); err != nil {
		t.Fatalf("EnsureUIRunningAndInFront: %v", err)
	}
	if c.CurrentState() != singleton.StateUIMode {
		t.Fatalf("expected ui mode, got %s", c.CurrentState())
	}
	close(release)
	_ = waitDone(t, done)
}

func TestEnsureUIRunningWaitsGraceAfterUIReady(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", true)
	opts.Timing.HandoffWait = time.Second
	opts.Timing.HandoffGrace = 150 * time.Millisecond
	c := mustClaim(t, opts)

	release := make(chan struct{})
	done := startLoop(t, c, func(context.Context) error {
		if err := c.SignalUIReady(); err != nil {
			return err
		}
		<-release
		return nil
	})

	start := time.Now()
	if err := c.EnsureUIRunningAndInFront(context.Background()); err != nil {
		t.Fatalf("EnsureUIRunningAndInFront: %v", err)
	}
	if elapsed := time.Since(start); elapsed < opts.Timing.HandoffGrace {
		t.Fatalf("expected the grace period after the ui came up, returned after %v", elapsed)
	}
	close(release)
	_ = waitDone(t, done)
}

func TestEnsureUIRunningHonoursContext(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", false)
	opts.Timing.HandoffWait = time.Hour
	c := mustClaim(t, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.EnsureUIRunningAndInFront(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestConnectorBringToFrontInUIModeNotifies(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", false))
	_ = c.SignalUIReady()

	var fronted atomic.Int32
	c.OnBringToFront(func() { fronted.Add(1) })

	handoff, err := singleton.TryClaim(context.Background(), env.options("editor", false))
	if err != nil || handoff != nil {
		t.Fatalf("expected hand-off, got c=%v err=%v", handoff, err)
	}
	testsupport.Eventually(t, time.Second, func() bool { return fronted.Load() == 1 },
		"expected the running ui to be brought to front")
}
