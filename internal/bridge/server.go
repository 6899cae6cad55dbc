package bridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ServerConfig controls where the bridge endpoint is mounted.
type ServerConfig struct {
	Path string
}

// Server hosts the websocket endpoint a backend process dials into. It
// keeps at most one peer; a new connection replaces the previous one.
type Server struct {
	local    *Registry
	path     string
	upgrader websocket.Upgrader
	engine   *gin.Engine

	mu           sync.RWMutex
	peer         *Peer
	onPeerChange func(connected bool)
}

func NewServer(local *Registry, cfg ServerConfig) *Server {
	if cfg.Path == "" {
		cfg.Path = "/bridge"
	}
	s := &Server{
		local: local,
		path:  cfg.Path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.engine = s.setupRouter()
	return s
}

// OnPeerChange registers a callback fired when a peer connects or leaves.
func (s *Server) OnPeerChange(fn func(connected bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPeerChange = fn
}

// Handler returns the HTTP handler serving the bridge and health routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Connected reports whether a backend peer is attached.
func (s *Server) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peer != nil
}

// Call forwards op to the connected peer.
func (s *Server) Call(ctx context.Context, op Op, args any) (json.RawMessage, error) {
	s.mu.RLock()
	peer := s.peer
	s.mu.RUnlock()
	if peer == nil {
		return nil, errors.Wrapf(ErrNotConnected, "%s", op)
	}
	return peer.Call(ctx, op, args)
}

// Serve accepts connections on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		s.Disconnect()
	}()

	err := httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "serve bridge")
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	log.WithField("addr", listener.Addr().String()).Info("Bridge listening")
	return s.Serve(ctx, listener)
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(recovery())

	r.GET(s.path, s.accept)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connected": s.Connected(),
			"side":      s.local.Side(),
			"ops":       s.local.Ops(),
		})
	})
	return r
}

func (s *Server) accept(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Bridge upgrade failed")
		return
	}

	peer := NewPeer(conn, s.local)
	previous := s.swapPeer(peer)
	if previous != nil {
		log.Info("Replacing existing bridge peer")
		_ = previous.Close()
	}
	log.WithField("remote", c.Request.RemoteAddr).Info("Bridge peer connected")
	s.notify(true)

	if err := peer.Wait(); err != nil {
		log.WithError(err).Warn("Bridge peer disconnected")
	} else {
		log.Info("Bridge peer disconnected")
	}

	if s.clearPeer(peer) {
		s.notify(false)
	}
}

func (s *Server) swapPeer(peer *Peer) *Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.peer
	s.peer = peer
	return previous
}

func (s *Server) clearPeer(peer *Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer != peer {
		return false
	}
	s.peer = nil
	return true
}

// Disconnect closes the current peer, if any. A backend that redials is
// accepted as usual.
func (s *Server) Disconnect() {
	s.mu.RLock()
	peer := s.peer
	s.mu.RUnlock()
	if peer != nil {
		_ = peer.Close()
	}
}

func (s *Server) notify(connected bool) {
	s.mu.RLock()
	fn := s.onPeerChange
	s.mu.RUnlock()
	if fn != nil {
		fn(connected)
	}
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("Bridge panic recovered: %v", err)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
