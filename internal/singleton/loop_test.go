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

func startLoop(t *testing.T, c *singleton.Coordinator, startUI singleton.UIStarter) <-chan error {
	t.Helper()
	return startLoopContext(t, context.Background(), c, startUI)
}

func startLoopContext(t *testing.T, ctx context.Context, c *singleton.Coordinator, startUI singleton.UIStarter) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.RunUntilExit(ctx, startUI) }()
	testsupport.Eventually(t, time.Second, func() bool {
		return c.CurrentState() != singleton.StateStarting
	}, "event loop never left starting")
	return done
}

func failUI(t *testing.T) singleton.UIStarter {
	return func(context.Context) error {
		t.Error("ui must not start")
		return nil
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not exit")
		return nil
	}
}

func assertRunning(t *testing.T, done <-chan error, settle time.Duration) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("event loop exited early: %v", err)
	case <-time.After(settle):
	}
}

func TestLoopExitsAfterClientsPeakAboveOneAndDrain(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))
	conn := c.Connector()
	ctx := context.Background()

	done := startLoop(t, c, failUI(t))
	if c.CurrentState() != singleton.StateServerMode {
		t.Fatalf("expected server mode, got %s", c.CurrentState())
	}

	if err := conn.Attach(ctx, "a"); err != nil {
		t.Fatalf("Attach a: %v", err)
	}
	if err := conn.Attach(ctx, "b"); err != nil {
		t.Fatalf("Attach b: %v", err)
	}
	assertRunning(t, done, 30*time.Millisecond)

	if err := conn.Detach(ctx, "a"); err != nil {
		t.Fatalf("Detach a: %v", err)
	}
	assertRunning(t, done, 30*time.Millisecond)
	if c.CurrentState() != singleton.StateServerMode {
		t.Fatalf("expected server mode with one client left, got %s", c.CurrentState())
	}

	if err := conn.Detach(ctx, "b"); err != nil {
		t.Fatalf("Detach b: %v", err)
	}
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}

func TestLoopSeesAttachBurstBetweenPolls(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", true)
	opts.Timing.PollInterval = 200 * time.Millisecond
	c := mustClaim(t, opts)
	conn := c.Connector()
	ctx := context.Background()

	done := startLoop(t, c, failUI(t))
	_ = conn.Attach(ctx, "a")
	_ = conn.Attach(ctx, "b")
	_ = conn.Detach(ctx, "a")
	_ = conn.Detach(ctx, "b")

	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}

func TestLoopIgnoresSingleClientComingAndGoing(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))
	conn := c.Connector()
	ctx := context.Background()

	done := startLoop(t, c, failUI(t))
	for i := 0; i < 3; i++ {
		_ = conn.Attach(ctx, "solo")
		assertRunning(t, done, 10*time.Millisecond)
		_ = conn.Detach(ctx, "solo")
		assertRunning(t, done, 10*time.Millisecond)
	}
	if c.CurrentState() != singleton.StateServerMode {
		t.Fatalf("expected server mode, got %s", c.CurrentState())
	}

	c.RequestExit()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}

func TestLoopStartsUIAndExitsWhenItCloses(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", false))

	var sawStarting atomic.Bool
	var fronted atomic.Int32
	c.OnBringToFront(func() { fronted.Add(1) })

	err := c.RunUntilExit(context.Background(), func(context.Context) error {
		sawStarting.Store(c.CurrentState() == singleton.StateUIModeStarting)
		return c.SignalUIReady()
	})
	if err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if !sawStarting.Load() {
		t.Fatal("expected ui_starting while the ui starter runs")
	}
	if fronted.Load() != 1 {
		t.Fatalf("expected one bring-to-front notification, got %d", fronted.Load())
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting after ui closed, got %s", c.CurrentState())
	}
}

func TestLoopReturnToServerPolicy(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", false)
	opts.UIClosePolicy = singleton.ClosePolicyReturnToServer
	c := mustClaim(t, opts)

	var runs atomic.Int32
	done := startLoop(t, c, func(context.Context) error {
		runs.Add(1)
		return c.SignalUIReady()
	})

	testsupport.Eventually(t, time.Second, func() bool {
		return runs.Load() == 1 && c.CurrentState() == singleton.StateServerMode
	}, "expected ui to run once and the loop to return to server mode")
	assertRunning(t, done, 20*time.Millisecond)

	if err := c.Connector().BringToFront(context.Background()); err != nil {
		t.Fatalf("BringToFront: %v", err)
	}
	testsupport.Eventually(t, time.Second, func() bool {
		return runs.Load() == 2
	}, "expected bring-to-front to restart the ui")

	if !c.RequestExitAndWait(time.Second) {
		t.Fatal("expected loop to exit")
	}
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
}

func TestLoopRemoteBringToFrontStartsUI(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))

	release := make(chan struct{})
	started := make(chan struct{})
	done := startLoop(t, c, func(ctx context.Context) error {
		close(started)
		if err := c.SignalUIReady(); err != nil {
			return err
		}
		<-release
		return nil
	})

	// A second launch hands off to this instance.
	handoff, err := singleton.TryClaim(context.Background(), env.options("editor", false))
	if err != nil || handoff != nil {
		t.Fatalf("expected hand-off, got c=%v err=%v", handoff, err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("expected hand-off to start the ui")
	}
	testsupport.Eventually(t, time.Second, func() bool {
		return c.CurrentState() == singleton.StateUIMode
	}, "expected ui mode")

	close(release)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}

func TestLoopReturnsUIError(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", false))
	boom := errors.New("display unavailable")

	err := c.RunUntilExit(context.Background(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected ui error, got %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}

func TestLoopContextCancellationExits(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", true)
	opts.Timing.PollInterval = time.Hour
	c := mustClaim(t, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := startLoopContext(t, ctx, c, failUI(t))
	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}

func TestLoopCloseWakesLongPoll(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", true)
	opts.Timing.PollInterval = time.Hour
	c := mustClaim(t, opts)

	done := startLoop(t, c, failUI(t))
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
}

func TestLoopRejectsSecondRun(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))

	done := startLoop(t, c, failUI(t))
	err := c.RunUntilExit(context.Background(), failUI(t))
	if !errors.Is(err, singleton.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for a second loop, got %v", err)
	}
	if err := c.RunUntilExit(context.Background(), nil); !errors.Is(err, singleton.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil ui starter, got %v", err)
	}
	c.RequestExit()
	_ = waitDone(t, done)
}

func TestRequestExitAndWait(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))

	done := startLoop(t, c, failUI(t))
	if !c.RequestExitAndWait(time.Second) {
		t.Fatal("expected exiting within the timeout")
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
	_ = waitDone(t, done)

	start := time.Now()
	if !c.RequestExitAndWait(time.Second) {
		t.Fatal("expected immediate true once exiting")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("expected immediate return, took %v", elapsed)
	}
}

func TestRequestExitAndWaitTimesOutWithoutLoop(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))

	if c.RequestExitAndWait(30 * time.Millisecond) {
		t.Fatal("expected timeout without a running loop")
	}
	if c.CurrentState() != singleton.StateStarting {
		t.Fatalf("expected starting, got %s", c.CurrentState())
	}
}

func TestExitRequestIsSticky(t *testing.T) {
	env := newClaimEnv()
	opts := env.options("editor", true)
	opts.Timing.PollInterval = time.Hour
	c := mustClaim(t, opts)

	c.RequestExit()
	_ = c.Connector().BringToFront(context.Background())

	err := c.RunUntilExit(context.Background(), failUI(t))
	if err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}

func TestRunUntilExitWithCancelledContextSkipsUI(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.RunUntilExit(ctx, failUI(t)); err != nil {
		t.Fatalf("RunUntilExit: %v", err)
	}
	if c.CurrentState() != singleton.StateExiting {
		t.Fatalf("expected exiting, got %s", c.CurrentState())
	}
}
