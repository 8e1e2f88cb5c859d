package singleton_test

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"singleapp/internal/singleton"
)

func TestConnectorAttachDetachSemantics(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))
	conn := c.Connector()
	ctx := context.Background()

	if err := conn.Attach(ctx, "  "); !errors.Is(err, singleton.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for blank attach, got %v", err)
	}
	if err := conn.Detach(ctx, ""); !errors.Is(err, singleton.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for blank detach, got %v", err)
	}

	for _, id := range []string{"zeta", "alpha", "alpha"} {
		if err := conn.Attach(ctx, id); err != nil {
			t.Fatalf("Attach %q: %v", id, err)
		}
	}
	count, err := conn.ClientCount(ctx)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 clients, got %d err=%v", count, err)
	}
	if c.ClientCount() != 2 {
		t.Fatalf("expected coordinator to see 2 clients, got %d", c.ClientCount())
	}
	if got := conn.Clients(); !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Fatalf("unexpected clients: %v", got)
	}

	if err := conn.Detach(ctx, "unknown"); err != nil {
		t.Fatalf("detach of unknown id should be a no-op: %v", err)
	}
	if err := conn.Detach(ctx, "alpha"); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if c.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", c.ClientCount())
	}
}

func TestConnectorSnapshot(t *testing.T) {
	env := newClaimEnv()
	c := mustClaim(t, env.options("editor", true))
	conn := c.Connector()
	_ = conn.Attach(context.Background(), "viewer")

	snap, err := conn.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.ServiceName != "editor" || conn.ServiceName() != "editor" {
		t.Fatalf("unexpected service name: %q", snap.ServiceName)
	}
	if snap.State != singleton.StateStarting {
		t.Fatalf("unexpected state: %s", snap.State)
	}
	if snap.PID != os.Getpid() {
		t.Fatalf("unexpected pid: %d", snap.PID)
	}
	if snap.Process != "editor" {
		t.Fatalf("unexpected process: %q", snap.Process)
	}
	if !reflect.DeepEqual(snap.Clients, []string{"viewer"}) {
		t.Fatalf("unexpected clients: %v", snap.Clients)
	}
}
