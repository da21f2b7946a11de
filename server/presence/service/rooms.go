package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	commonlog "fitgym_server/server/common/log"
)

// RoomHub tracks chat-room membership on the gateway socket. Messages relay
// through a Redis channel per room so rooms work across instances; with no
// Redis configured the hub falls back to local-only broadcast.
type RoomHub struct {
	mu    sync.Mutex
	redis *redis.Client
	rooms map[string]*roomState
}

type roomState struct {
	conns  map[string]Conn
	cancel context.CancelFunc
}

func NewRoomHub(redisClient *redis.Client) *RoomHub {
	return &RoomHub{redis: redisClient, rooms: map[string]*roomState{}}
}

func roomChannel(roomID string) string {
	return "room:" + roomID
}

func (h *RoomHub) Join(roomID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.rooms[roomID]
	if !ok {
		state = &roomState{conns: map[string]Conn{}}
		if h.redis != nil {
			roomCtx, cancel := context.WithCancel(context.Background())
			state.cancel = cancel
			go h.consumeRedis(roomCtx, roomID)
		}
		h.rooms[roomID] = state
	}
	state.conns[conn.ID()] = conn
}

func (h *RoomHub) Leave(roomID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, conn.ID())
}

// LeaveAll drops a disconnecting socket from every room it joined.
func (h *RoomHub) LeaveAll(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.rooms {
		h.leaveLocked(roomID, conn.ID())
	}
}

func (h *RoomHub) leaveLocked(roomID, socketID string) {
	state, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(state.conns, socketID)
	if len(state.conns) == 0 {
		if state.cancel != nil {
			state.cancel()
		}
		delete(h.rooms, roomID)
	}
}

func (h *RoomHub) Members(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	return len(state.conns)
}

// Publish delivers a payload to a room, via Redis when available so every
// instance holding members of the room relays it, locally otherwise.
func (h *RoomHub) Publish(ctx context.Context, roomID string, payload any) {
	if h.redis != nil {
		b, err := json.Marshal(payload)
		if err == nil {
			if err := h.redis.Publish(ctx, roomChannel(roomID), b).Err(); err == nil {
				return
			}
			commonlog.Warnf("event=room_hub action=publish status=failed room_id=%s fallback=local", roomID)
		}
	}
	h.broadcastLocal(roomID, payload)
}

func (h *RoomHub) broadcastLocal(roomID string, payload any) int {
	h.mu.Lock()
	state, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return 0
	}
	conns := make([]Conn, 0, len(state.conns))
	for _, conn := range state.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	count := 0
	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err == nil {
			count++
		}
	}
	return count
}

func (h *RoomHub) consumeRedis(ctx context.Context, roomID string) {
	pubsub := h.redis.Subscribe(ctx, roomChannel(roomID))
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			continue
		}
		h.broadcastLocal(roomID, payload)
	}
}
