package ws

import (
	"errors"
	"sync"

	"roomrelay/internal/metrics"

	"go.uber.org/zap"
)

type (
	ConnectionID = string
	RoomID       = string
)

var ErrDuplicateConnection = errors.New("connection already registered")

// connectionInfo is the registry's view of one live connection.
type connectionInfo struct {
	id       ConnectionID
	rooms    map[RoomID]struct{}
	outbound chan []byte
}

// Registry tracks live connections and the rooms they belong to.
//
// A connection id is in a room's member set iff the room is in that
// connection's room set, and a room never exists with zero members.
// Every method is atomic with respect to the others.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnectionID]*connectionInfo
	rooms map[RoomID]map[ConnectionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[ConnectionID]*connectionInfo),
		rooms: make(map[RoomID]map[ConnectionID]struct{}),
	}
}

// Register inserts a connection with an empty room set. The registry takes
// ownership of outbound and closes it on Unregister.
func (r *Registry) Register(id ConnectionID, outbound chan []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[id]; ok {
		return ErrDuplicateConnection
	}
	r.conns[id] = &connectionInfo{
		id:       id,
		rooms:    make(map[RoomID]struct{}),
		outbound: outbound,
	}
	metrics.ConnectionsActive.Inc()
	return nil
}

// Unregister removes the connection from every room it joined, prunes rooms
// left empty and closes its outbound queue. Unknown ids are ignored.
func (r *Registry) Unregister(id ConnectionID) {
	r.mu.Lock()
	info, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, id)
	for room := range info.rooms {
		r.removeMemberLocked(room, id)
	}
	r.mu.Unlock()

	// No sender can observe the channel any more: every send happens under
	// the read lock while the entry is still present.
	closeQuietly(info.outbound)
	metrics.ConnectionsActive.Dec()
	zap.L().Debug("registry.unregister", zap.String("conn", id), zap.Int("rooms", len(info.rooms)))
}

// JoinRoom adds the connection to room, creating the room if needed.
// Joining twice is a no-op, as is joining with an unknown connection.
func (r *Registry) JoinRoom(id ConnectionID, room RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.conns[id]
	if !ok {
		return
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[ConnectionID]struct{})
		r.rooms[room] = members
		metrics.RoomsActive.Inc()
	}
	members[id] = struct{}{}
	info.rooms[room] = struct{}{}
}

// LeaveRoom removes the connection from room and prunes the room if empty.
func (r *Registry) LeaveRoom(id ConnectionID, room RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.conns[id]
	if !ok {
		return
	}
	if _, member := info.rooms[room]; !member {
		return
	}
	delete(info.rooms, room)
	r.removeMemberLocked(room, id)
}

func (r *Registry) removeMemberLocked(room RoomID, id ConnectionID) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
		metrics.RoomsActive.Dec()
	}
}

// Broadcast enqueues payload onto the outbound queue of every member of
// room, the sender included. Membership of the sender is not required.
// Recipients whose queue is full or closed are skipped and then dropped
// from the registry. It returns the number of successful enqueues.
func (r *Registry) Broadcast(room RoomID, sender ConnectionID, payload []byte) int {
	var (
		sent   int
		failed []ConnectionID
	)

	r.mu.RLock()
	for id := range r.rooms[room] {
		info, ok := r.conns[id]
		if !ok {
			continue
		}
		if trySend(info.outbound, payload) {
			sent++
		} else {
			failed = append(failed, id)
		}
	}
	r.mu.RUnlock()

	metrics.Broadcasts.Inc()
	metrics.Deliveries.Add(float64(sent))
	r.dropSlow(failed)

	zap.L().Debug("registry.broadcast",
		zap.String("room", room),
		zap.String("sender", sender),
		zap.Int("delivered", sent),
		zap.Int("dropped", len(failed)),
	)
	return sent
}

// SendTo enqueues payload for a single connection. A full queue drops the
// connection, exactly like a failed broadcast recipient.
func (r *Registry) SendTo(id ConnectionID, payload []byte) bool {
	r.mu.RLock()
	info, ok := r.conns[id]
	delivered := ok && trySend(info.outbound, payload)
	r.mu.RUnlock()

	if ok && !delivered {
		r.dropSlow([]ConnectionID{id})
	}
	return delivered
}

func (r *Registry) dropSlow(ids []ConnectionID) {
	for _, id := range ids {
		metrics.DeliveriesDropped.Inc()
		zap.L().Warn("registry.drop_slow_consumer", zap.String("conn", id))
		r.Unregister(id)
	}
}

// trySend never blocks and never panics on a closed channel.
func trySend(ch chan<- []byte, payload []byte) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()

	select {
	case ch <- payload:
		return true
	default:
		return false
	}
}

func closeQuietly(ch chan []byte) {
	defer func() { _ = recover() }()
	close(ch)
}

// RoomMembers returns the number of live members of room.
func (r *Registry) RoomMembers(room RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// RoomSizes returns a snapshot of member counts for every live room.
func (r *Registry) RoomSizes() map[RoomID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[RoomID]int, len(r.rooms))
	for room, members := range r.rooms {
		out[room] = len(members)
	}
	return out
}

// Rooms returns the rooms the connection has joined.
func (r *Registry) Rooms(id ConnectionID) []RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.conns[id]
	if !ok {
		return nil
	}
	out := make([]RoomID, 0, len(info.rooms))
	for room := range info.rooms {
		out = append(out, room)
	}
	return out
}

func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close unregisters every connection.
func (r *Registry) Close() {
	r.mu.RLock()
	ids := make([]ConnectionID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Unregister(id)
	}
}
