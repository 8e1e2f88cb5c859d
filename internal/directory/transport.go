package directory

import (
	"context"
	"log/slog"
	"time"

	"singleapp/internal/ipc"
	"singleapp/internal/singleton"
)

type closer interface {
	Close() error
}

// newServer publishes ep for the lifetime of the registration, not of ctx.
func newServer(ctx context.Context, path string, ep singleton.Endpoint, logger *slog.Logger) (closer, error) {
	srv, err := ipc.NewServer(context.WithoutCancel(ctx), path, ep, logger)
	if err != nil {
		return nil, err
	}
	srv.Serve()
	return srv, nil
}

func dial(ctx context.Context, path string, timeout time.Duration) (singleton.Remote, error) {
	client, err := ipc.Dial(ctx, path, timeout)
	if err != nil {
		return nil, err
	}
	return client, nil
}
