package dispatch

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// ServerConfig holds socket-server settings.
type ServerConfig struct {
	// SocketPath is the unix socket to listen on.
	SocketPath string
	// MaxClients caps concurrent connections (0 = unlimited).
	MaxClients int
}

// DefaultSocketPath places the socket in the user runtime dir when
// available, falling back to the system temp directory.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "droidctl.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("droidctl-%d.sock", os.Getuid()))
}

// Server accepts unix-socket connections and runs an independent dispatch
// loop per connection. Connections share only the read-only registry
// inside the Core, so no cross-connection locking is needed.
type Server struct {
	config   ServerConfig
	core     *Core
	listener net.Listener

	clients     sync.Map // id -> *Connection
	clientCount atomic.Int64
	nextID      atomic.Int64
	wg          sync.WaitGroup
}

// NewServer creates a socket server over the given core.
func NewServer(config ServerConfig, core *Core) *Server {
	if config.SocketPath == "" {
		config.SocketPath = DefaultSocketPath()
	}
	return &Server{config: config, core: core}
}

// Listen binds the socket, replacing a stale socket file if present.
func (s *Server) Listen() error {
	if err := os.Remove(s.config.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.config.SocketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.SocketPath, err)
	}
	if err := os.Chmod(s.config.SocketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("restricting socket permissions: %w", err)
	}

	s.listener = listener
	return nil
}

// Serve accepts connections until the context is cancelled or the
// listener fails. A failing connection closes only itself.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	log.Printf("listening on %s", s.config.SocketPath)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || isClosedError(err) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if s.config.MaxClients > 0 && s.clientCount.Load() >= int64(s.config.MaxClients) {
			log.Printf("rejecting connection: client limit %d reached", s.config.MaxClients)
			conn.Close()
			continue
		}

		id := s.nextID.Add(1)
		client := NewConnection(id, conn, conn, conn, s.core)
		s.clients.Store(id, client)
		s.clientCount.Add(1)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.clients.Delete(id)
				s.clientCount.Add(-1)
			}()
			client.Handle(ctx)
		}()
	}
}

// Close shuts the listener and every live connection.
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.clients.Range(func(_, value any) bool {
		value.(*Connection).Close()
		return true
	})
	s.wg.Wait()
	os.Remove(s.config.SocketPath)
	return err
}

// SocketPath returns the bound socket path.
func (s *Server) SocketPath() string { return s.config.SocketPath }

// ServeStdio runs a single dispatch loop over the given streams,
// blocking until EOF or cancellation. This is the primary mode when the
// server is spawned as a child of the caller.
func ServeStdio(ctx context.Context, core *Core, r *os.File, w *os.File) {
	conn := NewConnection(0, r, w, nil, core)
	conn.Handle(ctx)
}
