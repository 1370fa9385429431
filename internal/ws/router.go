package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"roomrelay/internal/metrics"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ConnContext identifies the connection a frame arrived on.
type ConnContext struct {
	ID ConnectionID
}

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, frame []byte) (any, error)

// Dispatcher routes inbound frames by their action and applies them to the
// Registry.
type Dispatcher struct {
	registry *Registry
	validate *validator.Validate

	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewDispatcher(reg *Registry) *Dispatcher {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	d := &Dispatcher{
		registry: reg,
		validate: v,
		handlers: make(map[string]rawHandler),
	}
	d.registerHandlers()
	return d
}

// Register binds an action to a strongly-typed handler. The whole frame is
// decoded into Req and validated before h runs.
func Register[Req any, Res any](
	d *Dispatcher,
	action string,
	h func(ctx context.Context, c *ConnContext, req Req) (Res, error),
) {
	if action == "" {
		panic("ws dispatcher: empty action")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[action] = func(ctx context.Context, c *ConnContext, frame []byte) (any, error) {
		var req Req
		if err := json.Unmarshal(frame, &req); err != nil {
			return nil, err
		}
		if err := d.validate.Struct(req); err != nil {
			return nil, describeValidation(err)
		}
		return h(ctx, c, req)
	}
}

func (d *Dispatcher) registerHandlers() {
	Register(d, ActionJoinRoom,
		func(_ context.Context, cc *ConnContext, req JoinRoomRequest) (StatusFrame, error) {
			d.registry.JoinRoom(cc.ID, *req.Room)
			return StatusFrame{Status: "joined", Room: *req.Room}, nil
		},
	)

	Register(d, ActionLeaveRoom,
		func(_ context.Context, cc *ConnContext, req LeaveRoomRequest) (StatusFrame, error) {
			d.registry.LeaveRoom(cc.ID, *req.Room)
			return StatusFrame{Status: "left", Room: *req.Room}, nil
		},
	)

	Register(d, ActionChat,
		func(_ context.Context, cc *ConnContext, req ChatRequest) (StatusFrame, error) {
			room, msg := *req.Room, *req.Message
			d.registry.Broadcast(room, cc.ID, encodeFrame(ChatFrame{Chat: msg}))
			return StatusFrame{Status: "sent message " + msg, Room: room}, nil
		},
	)
}

// Dispatch handles one inbound text frame and enqueues the reply for the
// originating connection. Decode failures never close the connection.
func (d *Dispatcher) Dispatch(ctx context.Context, cc *ConnContext, frame []byte) {
	res, err := d.dispatch(ctx, cc, frame)
	if err != nil {
		metrics.ProtocolErrors.Inc()
		zap.L().Debug("ws.invalid_frame", zap.String("conn", cc.ID), zap.Error(err))
		d.registry.SendTo(cc.ID, encodeFrame(ErrorFrame{Error: errInvalidJSON, Details: err.Error()}))
		return
	}
	d.registry.SendTo(cc.ID, encodeFrame(res))
}

func (d *Dispatcher) dispatch(ctx context.Context, cc *ConnContext, frame []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	if env.Action == "" {
		return nil, errors.New("missing field `action`")
	}

	d.mu.RLock()
	h, ok := d.handlers[env.Action]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown action `%s`", env.Action)
	}
	return h(ctx, cc, frame)
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, "`"+fe.Field()+"`")
	}
	return fmt.Errorf("missing field %s", strings.Join(fields, ", "))
}
