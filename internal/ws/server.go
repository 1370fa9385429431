package ws

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var ErrRelayClosed = errors.New("relay is shutting down")

// Options tune the per-connection transport behaviour.
type Options struct {
	SendBuffer     int
	MaxMessageSize int64
	PingPeriod     time.Duration // 0 disables server pings
	IdleTimeout    time.Duration // 0 disables the idle read deadline
	AllowedOrigins []string      // "*" or empty allows any origin
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:     256,
		MaxMessageSize: 4096,
		PingPeriod:     30 * time.Second,
	}
}

// WsServer accepts websocket upgrades and runs one connection per request.
type WsServer struct {
	registry   *Registry
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
	active     sync.WaitGroup

	// mu orders admission against Shutdown: once closed is set no
	// connection is counted in active or added to the registry.
	mu     sync.Mutex
	closed bool
}

func NewWsServer(reg *Registry, opts Options) *WsServer {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 1
	}
	srv := &WsServer{
		registry:   reg,
		dispatcher: NewDispatcher(reg),
		opts:       opts,
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.checkOrigin,
	}
	return srv
}

func (s *WsServer) Registry() *Registry { return s.registry }

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

// Handle upgrades the request and blocks until the connection is closed.
// A failed handshake is answered by the upgrader and creates no state.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	if !s.begin() {
		ginCtx.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	defer s.active.Done()

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}

	_ = rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := rawConn.WriteMessage(websocket.TextMessage, []byte(Greeting)); err != nil {
		zap.L().Debug("ws.greeting", zap.Error(err))
		_ = rawConn.Close()
		return
	}

	id := uuid.NewString()
	send := make(chan []byte, s.opts.SendBuffer)
	if err := s.admit(id, send); err != nil {
		zap.L().Info("ws.register", zap.String("conn", id), zap.Error(err))
		_ = rawConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		_ = rawConn.Close()
		return
	}
	zap.L().Debug("ws.connected", zap.String("conn", id), zap.String("remote", ginCtx.Request.RemoteAddr))

	conn := &clientConn{
		id:         id,
		rawConn:    rawConn,
		send:       send,
		registry:   s.registry,
		dispatcher: s.dispatcher,
		opts:       s.opts,
	}

	written := make(chan struct{})
	go func() {
		defer close(written)
		conn.writeLoop()
	}()
	conn.readLoop(ginCtx.Request.Context())
	<-written

	zap.L().Debug("ws.disconnected", zap.String("conn", id))
}

// begin counts a new connection in active unless Shutdown has started.
func (s *WsServer) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.active.Add(1)
	return true
}

// admit registers the connection unless Shutdown has already closed the
// registry.
func (s *WsServer) admit(id ConnectionID, send chan []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrRelayClosed
	}
	return s.registry.Register(id, send)
}

// Stats reports live connection and room counts.
func (s *WsServer) Stats(ginCtx *gin.Context) {
	ginCtx.JSON(http.StatusOK, gin.H{
		"connections": s.registry.Connections(),
		"rooms":       s.registry.RoomSizes(),
	})
}

// Shutdown refuses new upgrades, closes every live connection and waits for
// their loops to finish or for ctx to expire.
func (s *WsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.registry.Close()

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WsServer) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.opts.AllowedOrigins, origin)
}
