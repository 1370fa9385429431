package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcherWith(t *testing.T, ids ...string) (*Dispatcher, *Registry, map[string]chan []byte) {
	t.Helper()
	reg := NewRegistry()
	queues := make(map[string]chan []byte, len(ids))
	for _, id := range ids {
		queues[id] = register(t, reg, id, 16)
	}
	return NewDispatcher(reg), reg, queues
}

func dispatch(d *Dispatcher, id string, frame string) {
	d.Dispatch(context.Background(), &ConnContext{ID: id}, []byte(frame))
}

func next(t *testing.T, ch chan []byte) map[string]string {
	t.Helper()
	select {
	case b := <-ch:
		var out map[string]string
		require.NoError(t, json.Unmarshal(b, &out), string(b))
		return out
	default:
		t.Fatal("expected a queued frame")
		return nil
	}
}

func TestDispatchJoinAndLeave(t *testing.T) {
	d, reg, q := newDispatcherWith(t, "a")

	dispatch(d, "a", `{"action":"join_room","room":"lobby"}`)
	assert.Equal(t, map[string]string{"status": "joined", "room": "lobby"}, next(t, q["a"]))
	assert.Equal(t, 1, reg.RoomMembers("lobby"))

	dispatch(d, "a", `{"action":"leave_room","room":"lobby"}`)
	assert.Equal(t, map[string]string{"status": "left", "room": "lobby"}, next(t, q["a"]))
	assert.Zero(t, reg.RoomMembers("lobby"))
}

func TestDispatchChatFansOutThenAcks(t *testing.T) {
	d, _, q := newDispatcherWith(t, "a", "b")
	dispatch(d, "a", `{"action":"join_room","room":"lobby"}`)
	dispatch(d, "b", `{"action":"join_room","room":"lobby"}`)
	next(t, q["a"])
	next(t, q["b"])

	dispatch(d, "a", `{"action":"chat","room":"lobby","message":"hi \"there\""}`)

	assert.Equal(t, map[string]string{"chat": `hi "there"`}, next(t, q["a"]))
	assert.Equal(t, map[string]string{"status": `sent message hi "there"`, "room": "lobby"}, next(t, q["a"]))
	assert.Equal(t, map[string]string{"chat": `hi "there"`}, next(t, q["b"]))
	assert.Empty(t, q["b"])
}

func TestDispatchChatWithoutMembership(t *testing.T) {
	d, _, q := newDispatcherWith(t, "a", "b")
	dispatch(d, "b", `{"action":"join_room","room":"lobby"}`)
	next(t, q["b"])

	dispatch(d, "a", `{"action":"chat","room":"lobby","message":"hello"}`)

	assert.Equal(t, map[string]string{"chat": "hello"}, next(t, q["b"]))
	assert.Equal(t, map[string]string{"status": "sent message hello", "room": "lobby"}, next(t, q["a"]))
	assert.Empty(t, q["a"])
}

func TestDispatchInvalidFrames(t *testing.T) {
	cases := map[string]string{
		"unknown action": `{"action":"unknown"}`,
		"missing action": `{"room":"lobby"}`,
		"not json":       `hello`,
		"missing room":   `{"action":"join_room"}`,
		"null message":   `{"action":"chat","room":"lobby","message":null}`,
		"wrong type":     `{"action":"chat","room":7,"message":"x"}`,
	}

	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			d, reg, q := newDispatcherWith(t, "a", "b")
			dispatch(d, "b", `{"action":"join_room","room":"lobby"}`)
			next(t, q["b"])

			dispatch(d, "a", frame)

			reply := next(t, q["a"])
			assert.Equal(t, "invalid_json", reply["error"])
			assert.NotEmpty(t, reply["details"])
			assert.Empty(t, q["b"], "error must only reach the originator")
			assert.Equal(t, map[RoomID]int{"lobby": 1}, reg.RoomSizes())
			assert.Equal(t, 2, reg.Connections())
		})
	}
}

func TestDispatchAcceptsEmptyStrings(t *testing.T) {
	d, reg, q := newDispatcherWith(t, "a", "b")

	dispatch(d, "a", `{"action":"join_room","room":""}`)
	assert.Equal(t, map[string]string{"status": "joined", "room": ""}, next(t, q["a"]))
	assert.Equal(t, []RoomID{""}, reg.Rooms("a"))

	dispatch(d, "b", `{"action":"join_room","room":"lobby"}`)
	next(t, q["b"])

	dispatch(d, "a", `{"action":"chat","room":"lobby","message":""}`)
	assert.Equal(t, map[string]string{"chat": ""}, next(t, q["b"]))
	assert.Equal(t, map[string]string{"status": "sent message ", "room": "lobby"}, next(t, q["a"]))

	dispatch(d, "a", `{"action":"leave_room","room":""}`)
	assert.Equal(t, map[string]string{"status": "left", "room": ""}, next(t, q["a"]))
	assert.Equal(t, map[RoomID]int{"lobby": 1}, reg.RoomSizes())
}

func TestDispatchMissingFieldDetails(t *testing.T) {
	d, _, q := newDispatcherWith(t, "a")

	dispatch(d, "a", `{"action":"chat","room":"lobby"}`)

	assert.Equal(t, map[string]string{"error": "invalid_json", "details": "missing field `message`"}, next(t, q["a"]))
}

func TestRegisterRejectsEmptyAction(t *testing.T) {
	d, _, _ := newDispatcherWith(t)
	assert.Panics(t, func() {
		Register(d, "", func(context.Context, *ConnContext, JoinRoomRequest) (StatusFrame, error) {
			return StatusFrame{}, nil
		})
	})
}
