package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"time"

	"singleapp/internal/singleton"
)

const defaultDialTimeout = 2 * time.Second

// Client is a singleton.Remote backed by a Connector socket.
type Client struct {
	path   string
	conn   net.Conn
	client *rpc.Client
}

var _ singleton.Remote = (*Client)(nil)

// Dial connects to the Connector socket at path. A non-positive timeout uses
// a two second default.
func Dial(ctx context.Context, path string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc dial %s: %w", path, err)
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{path: path, conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection. Ids attached through this client
// are detached by the server.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) BringToFront(ctx context.Context) error {
	var resp BringToFrontResponse
	return c.call(ctx, "BringToFront", BringToFrontRequest{}, &resp)
}

func (c *Client) Attach(ctx context.Context, clientID string) error {
	var resp AttachResponse
	return c.call(ctx, "Attach", AttachRequest{ClientID: clientID}, &resp)
}

func (c *Client) Detach(ctx context.Context, clientID string) error {
	var resp DetachResponse
	return c.call(ctx, "Detach", DetachRequest{ClientID: clientID}, &resp)
}

func (c *Client) ClientCount(ctx context.Context) (int, error) {
	var resp ClientCountResponse
	if err := c.call(ctx, "ClientCount", ClientCountRequest{}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) Snapshot(ctx context.Context) (singleton.Snapshot, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return singleton.Snapshot{}, err
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ipc %s: %w", method, err)
	}
	call := c.client.Go(serviceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return fmt.Errorf("ipc %s: %w", method, ctx.Err())
	case done := <-call.Done:
		if done.Error != nil {
			return fmt.Errorf("ipc %s: %w", method, remoteError(done.Error))
		}
		return nil
	}
}

// remoteError restores the singleton sentinels lost when an error crosses the
// wire as plain text.
func remoteError(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}
	msg := string(serverErr)
	for _, sentinel := range []error{singleton.ErrConfiguration, singleton.ErrDisposed} {
		if strings.Contains(msg, sentinel.Error()) {
			return fmt.Errorf("%w: remote: %s", sentinel, msg)
		}
	}
	return err
}
