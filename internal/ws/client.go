package ws

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// clientConn owns one upgraded websocket and its two loops. Data frames are
// written only by the write loop; control frames use WriteControl, which is
// safe alongside it.
type clientConn struct {
	id         ConnectionID
	rawConn    *websocket.Conn
	send       <-chan []byte
	registry   *Registry
	dispatcher *Dispatcher
	opts       Options
}

func (c *clientConn) write(mt int, data []byte) error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data)
}

func (c *clientConn) writeControl(mt int, data []byte) error {
	return c.rawConn.WriteControl(mt, data, time.Now().Add(writeWait))
}

// finish is the single cleanup point of both loops. It runs on every exit
// path, panics included.
func (c *clientConn) finish(loop string) {
	if rec := recover(); rec != nil {
		zap.L().Error("ws.loop_panic",
			zap.String("conn", c.id),
			zap.String("loop", loop),
			zap.Any("panic", rec),
		)
	}
	c.registry.Unregister(c.id)
	_ = c.rawConn.Close()
}

// writeLoop drains the outbound queue onto the transport. A failed write
// unregisters the connection; a closed queue ends it with a close frame.
func (c *clientConn) writeLoop() {
	defer c.finish("write")

	var ping <-chan time.Time
	if c.opts.PingPeriod > 0 {
		ticker := time.NewTicker(c.opts.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.writeControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				zap.L().Debug("ws.write", zap.String("conn", c.id), zap.Error(err))
				return
			}
		case <-ping:
			if err := c.writeControl(websocket.PingMessage, nil); err != nil {
				zap.L().Debug("ws.ping", zap.String("conn", c.id), zap.Error(err))
				return
			}
		}
	}
}

// readLoop hands text frames to the dispatcher, strictly in arrival order,
// until the peer closes or the transport fails.
func (c *clientConn) readLoop(ctx context.Context) {
	defer c.finish("read")

	c.rawConn.SetReadLimit(c.opts.MaxMessageSize)
	c.extendDeadline()
	c.rawConn.SetPingHandler(func(data string) error {
		c.extendDeadline()
		err := c.writeControl(websocket.PongMessage, []byte(data))
		var ne net.Error
		if errors.Is(err, websocket.ErrCloseSent) || (errors.As(err, &ne) && ne.Timeout()) {
			return nil
		}
		return err
	})
	c.rawConn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	cc := &ConnContext{ID: c.id}
	for {
		mt, data, err := c.rawConn.ReadMessage()
		if err != nil {
			logReadError(c.id, err)
			return
		}
		c.extendDeadline()
		if mt != websocket.TextMessage {
			continue
		}
		c.dispatcher.Dispatch(ctx, cc, data)
	}
}

func (c *clientConn) extendDeadline() {
	if c.opts.IdleTimeout <= 0 {
		return
	}
	_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout))
}

func logReadError(id ConnectionID, err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		zap.L().Debug("ws.closed", zap.String("conn", id), zap.Error(err))
	case errors.Is(err, websocket.ErrReadLimit):
		zap.L().Warn("ws.read_limit", zap.String("conn", id), zap.Error(err))
	default:
		zap.L().Debug("ws.read", zap.String("conn", id), zap.Error(err))
	}
}
