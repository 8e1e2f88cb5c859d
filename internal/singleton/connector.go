package singleton

import (
	"context"
	"fmt"
	"os"
	"strings"

	"singleapp/internal/logging"
)

// Connector is the Endpoint a Coordinator publishes. Inbound calls run on
// transport goroutines.
type Connector struct {
	owner   *Coordinator
	clients *clientRegistry
	pid     int
}

var _ Endpoint = (*Connector)(nil)

func newConnector(owner *Coordinator) *Connector {
	return &Connector{owner: owner, clients: newClientRegistry(), pid: os.Getpid()}
}

// ServiceName returns the owning coordinator's service name.
func (c *Connector) ServiceName() string { return c.owner.serviceName }

// BringToFront asks the owner to show its UI. It returns once the request is
// recorded; it does not wait for the UI.
func (c *Connector) BringToFront(context.Context) error {
	if c.owner.disposed.Load() {
		return fmt.Errorf("bring to front: %w", ErrDisposed)
	}
	c.owner.logger.Debug("bring to front requested",
		logging.String(logging.FieldState, c.owner.CurrentState().String()),
	)
	c.owner.bringToFront()
	return nil
}

// Attach registers a client. Attaching an id twice is a no-op.
func (c *Connector) Attach(_ context.Context, clientID string) error {
	if c.owner.disposed.Load() {
		return fmt.Errorf("attach: %w", ErrDisposed)
	}
	id := strings.TrimSpace(clientID)
	if id == "" {
		return fmt.Errorf("%w: client id is blank", ErrConfiguration)
	}
	if c.clients.add(id) {
		c.owner.logger.Debug("client attached",
			logging.String(logging.FieldClientID, id),
			logging.Int("clients", c.clients.count()),
		)
	}
	return nil
}

// Detach unregisters a client. Unknown ids are ignored.
func (c *Connector) Detach(_ context.Context, clientID string) error {
	if c.owner.disposed.Load() {
		return fmt.Errorf("detach: %w", ErrDisposed)
	}
	id := strings.TrimSpace(clientID)
	if id == "" {
		return fmt.Errorf("%w: client id is blank", ErrConfiguration)
	}
	if c.clients.remove(id) {
		c.owner.logger.Debug("client detached",
			logging.String(logging.FieldClientID, id),
			logging.Int("clients", c.clients.count()),
		)
		c.owner.requestWake()
	}
	return nil
}

// ClientCount returns the number of attached clients.
func (c *Connector) ClientCount(context.Context) (int, error) {
	return c.clients.count(), nil
}

// Clients returns the attached client ids in sorted order.
func (c *Connector) Clients() []string {
	return c.clients.list()
}

// Snapshot describes the owner for status displays.
func (c *Connector) Snapshot(context.Context) (Snapshot, error) {
	return Snapshot{
		ServiceName: c.owner.serviceName,
		State:       c.owner.CurrentState(),
		Clients:     c.clients.list(),
		PID:         c.pid,
		Process:     c.owner.processName,
	}, nil
}
