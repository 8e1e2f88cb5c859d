package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"singleapp/internal/logging"
	"singleapp/internal/singleton"
)

// Server publishes an Endpoint on a Unix domain socket.
type Server struct {
	path     string
	endpoint singleton.Endpoint
	logger   *slog.Logger
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	// owners maps each attached client id to the session that attached it
	// last. attachMu serializes every attach and detach through this server.
	attachMu sync.Mutex
	owners   map[string]*session

	closeOnce sync.Once
}

// NewServer listens on path, replacing any stale socket file.
func NewServer(ctx context.Context, path string, ep singleton.Endpoint, logger *slog.Logger) (*Server, error) {
	if ep == nil {
		return nil, errors.New("ipc server requires endpoint")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:     path,
		endpoint: ep,
		logger:   logger,
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
		owners:   make(map[string]*session),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve accepts connections in the background until Close.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions"),
				)
				continue
			}
			if !s.track(conn) {
				_ = conn.Close()
				return
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.serveConn(c)
			}(conn)
		}
	}()
}

func (s *Server) serveConn(conn net.Conn) {
	sess := &session{server: s, endpoint: s.endpoint, logger: s.logger, ctx: s.ctx}
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, sess); err != nil {
		logging.ErrorWithContext(s.logger, "register rpc session failed", "ipc_register_failed", logging.Error(err))
		s.untrack(conn)
		_ = conn.Close()
		return
	}
	rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	s.untrack(conn)
	sess.detachAll()
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Close stops accepting, drops open connections, and removes the socket file.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.mu.Lock()
		open := s.conns
		s.conns = nil
		s.mu.Unlock()
		for conn := range open {
			_ = conn.Close()
		}
		s.wg.Wait()
		if removeErr := os.RemoveAll(s.path); removeErr != nil {
			logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
				logging.String("socket", s.path),
				logging.Error(removeErr),
				logging.String(logging.FieldImpact, "stale socket file left in the runtime directory"),
				logging.String(logging.FieldErrorHint, "remove the socket file manually"),
			)
			err = fmt.Errorf("remove socket: %w", removeErr)
		}
	})
	return err
}

// session serves one connection. Exported methods form the RPC surface.
type session struct {
	server   *Server
	endpoint singleton.Endpoint
	logger   *slog.Logger
	ctx      context.Context
}

func (s *session) BringToFront(_ BringToFrontRequest, resp *BringToFrontResponse) error {
	if err := s.endpoint.BringToFront(s.ctx); err != nil {
		return err
	}
	snap, err := s.endpoint.Snapshot(s.ctx)
	if err != nil {
		return err
	}
	resp.State = snap.State.String()
	return nil
}

func (s *session) Attach(req AttachRequest, resp *AttachResponse) error {
	s.server.attachMu.Lock()
	err := s.endpoint.Attach(s.ctx, req.ClientID)
	if err == nil {
		s.server.owners[strings.TrimSpace(req.ClientID)] = s
	}
	s.server.attachMu.Unlock()
	if err != nil {
		return err
	}
	count, err := s.endpoint.ClientCount(s.ctx)
	if err != nil {
		return err
	}
	resp.Clients = count
	return nil
}

func (s *session) Detach(req DetachRequest, resp *DetachResponse) error {
	s.server.attachMu.Lock()
	err := s.endpoint.Detach(s.ctx, req.ClientID)
	if err == nil {
		delete(s.server.owners, strings.TrimSpace(req.ClientID))
	}
	s.server.attachMu.Unlock()
	if err != nil {
		return err
	}
	count, err := s.endpoint.ClientCount(s.ctx)
	if err != nil {
		return err
	}
	resp.Clients = count
	return nil
}

func (s *session) ClientCount(_ ClientCountRequest, resp *ClientCountResponse) error {
	count, err := s.endpoint.ClientCount(s.ctx)
	if err != nil {
		return err
	}
	resp.Count = count
	return nil
}

func (s *session) Status(_ StatusRequest, resp *StatusResponse) error {
	snap, err := s.endpoint.Snapshot(s.ctx)
	if err != nil {
		return err
	}
	*resp = snap
	return nil
}

// detachAll releases every id this connection attached last. Ids detached
// elsewhere or re-attached by another connection are left alone.
func (s *session) detachAll() {
	s.server.attachMu.Lock()
	defer s.server.attachMu.Unlock()

	for id, owner := range s.server.owners {
		if owner != s {
			continue
		}
		delete(s.server.owners, id)
		if err := s.endpoint.Detach(context.Background(), id); err != nil {
			s.logger.Debug("auto-detach failed", logging.String(logging.FieldClientID, id), logging.Error(err))
			continue
		}
		s.logger.Info("client connection closed; detached",
			logging.String(logging.FieldEventType, "client_auto_detach"),
			logging.String(logging.FieldClientID, id),
		)
	}
}
