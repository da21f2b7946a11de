package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	commonlog "fitgym_server/server/common/log"
	"fitgym_server/server/presence/domain"
)

// EventPublisher hands presence and chat events to the out-of-process
// persistence tier. Best-effort: a publish failure never fails the operation
// that triggered it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type GatewayConfig struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

// Gateway is the message-handler facade over the presence core. Each
// connection moves through Connected -> Joined -> Disconnected; handlers that
// require Joined answer with an error event instead of dropping the request.
type Gateway struct {
	registry *Registry
	statuses *StatusStore
	monitor  *Monitor
	notifier *Notifier
	rooms    *RoomHub
	events   EventPublisher
}

func NewGateway(friends FriendSource, rooms *RoomHub, events EventPublisher, cfg GatewayConfig) *Gateway {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 60 * time.Second
	}

	g := &Gateway{
		registry: NewRegistry(),
		statuses: NewStatusStore(),
		rooms:    rooms,
		events:   events,
	}
	g.notifier = NewNotifier(g.registry, g.statuses, friends)
	g.monitor = NewMonitor(cfg.HeartbeatInterval, cfg.HeartbeatTimeout, g.sendPing, g.expireSocket)
	return g
}

// Dispatch decodes one inbound frame and routes it by event name. authUserID
// is the identity the transport authenticated; payloads are validated here,
// at the boundary, before any state changes.
func (g *Gateway) Dispatch(ctx context.Context, conn Conn, authUserID string, raw []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.sendError(conn, "malformed message")
		return
	}

	switch env.Event {
	case domain.EventJoin:
		g.handleJoin(ctx, conn, authUserID, env.Data)
	case domain.EventUpdateStatus:
		g.handleUpdateStatus(ctx, conn, env.Data)
	case domain.EventHeartbeat:
		g.handleHeartbeat(conn)
	case domain.EventGetOnlineFriends:
		g.handleOnlineFriends(ctx, conn)
	case domain.EventFriendStatusReq:
		g.handleFriendStatus(conn, env.Data)
	case domain.EventGetCurrentStatus:
		g.handleCurrentStatus(conn)
	case domain.EventJoinChatRoom:
		g.handleRoomJoin(conn, env.Data)
	case domain.EventLeaveChatRoom:
		g.handleRoomLeave(conn, env.Data)
	case domain.EventChatRoomMessage:
		g.handleRoomMessage(ctx, conn, env.Data)
	default:
		commonlog.Debugf("event=presence_gateway action=dispatch status=ignored socket_id=%s name=%s", conn.ID(), env.Event)
	}
}

func (g *Gateway) handleJoin(ctx context.Context, conn Conn, authUserID string, data json.RawMessage) {
	var req domain.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(conn, "invalid join payload")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Username = strings.TrimSpace(req.Username)
	if req.UserID == "" || req.Username == "" {
		g.sendError(conn, "userId and username are required")
		return
	}
	if req.UserID != authUserID {
		commonlog.Warnf("event=presence_gateway action=join status=rejected auth_user_id=%s user_id=%s socket_id=%s", authUserID, req.UserID, conn.ID())
		g.sendError(conn, "cannot join as another user")
		return
	}

	// Explicit status wins; otherwise restore the pre-disconnect status, and
	// only fall back to ONLINE for users with no history at all.
	status := req.Status
	if !status.Valid() || status == domain.StatusOffline {
		status = g.statuses.Last(req.UserID)
	}

	user := g.registry.Register(conn, req.UserID, req.Username, req.Avatar, status)
	g.statuses.Set(req.UserID, status)
	g.monitor.Track(conn.ID())

	g.send(conn, domain.EventStatusConfirmed, domain.StatusConfirmed{Status: status, Timestamp: time.Now()})

	if entries, err := g.notifier.Snapshot(ctx, req.UserID); err != nil {
		commonlog.Warnf("event=presence_gateway action=snapshot status=skipped user_id=%s error=%v", req.UserID, err)
	} else {
		g.send(conn, domain.EventOnlineFriends, entries)
	}

	g.notifier.BroadcastStatus(ctx, user, true)
	g.publish(ctx, "presence.joined", user)
	commonlog.Infof("event=presence_gateway action=join status=ok user_id=%s socket_id=%s presence=%s", req.UserID, conn.ID(), status)
}

func (g *Gateway) handleUpdateStatus(ctx context.Context, conn Conn, data json.RawMessage) {
	userID, ok := g.registry.LookupUser(conn.ID())
	if !ok {
		g.sendError(conn, "join required before status updates")
		return
	}
	var req domain.StatusUpdateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(conn, "invalid status payload")
		return
	}
	if !req.Status.Valid() || req.Status == domain.StatusOffline {
		g.sendError(conn, "status must be one of ONLINE, AWAY, DO_NOT_DISTURB")
		return
	}

	user, ok := g.registry.SetStatus(userID, req.Status)
	if !ok {
		// Connection already removed, e.g. a timeout disconnect raced this
		// request. Safe no-op.
		g.sendError(conn, "connection no longer registered")
		return
	}
	g.statuses.Set(userID, req.Status)

	g.send(conn, domain.EventStatusUpdated, domain.StatusUpdated{Status: req.Status, Timestamp: time.Now(), Confirmed: true})
	g.notifier.BroadcastStatus(ctx, user, true)
	g.publish(ctx, "presence.status_changed", user)
}

func (g *Gateway) handleHeartbeat(conn Conn) {
	now := time.Now()
	// The sender always gets an ack, joined or not.
	g.send(conn, domain.EventHeartbeatAck, domain.HeartbeatSignal{Timestamp: now})

	userID, ok := g.registry.LookupUser(conn.ID())
	if !ok {
		return
	}
	g.monitor.Touch(conn.ID())
	g.registry.TouchActivity(userID, now)
}

func (g *Gateway) handleOnlineFriends(ctx context.Context, conn Conn) {
	userID, ok := g.registry.LookupUser(conn.ID())
	if !ok {
		g.sendError(conn, "join required")
		return
	}
	entries, err := g.notifier.Snapshot(ctx, userID)
	if err != nil {
		commonlog.Warnf("event=presence_gateway action=snapshot status=skipped user_id=%s error=%v", userID, err)
		g.sendError(conn, "friend lookup unavailable")
		return
	}
	g.send(conn, domain.EventOnlineFriends, entries)
}

func (g *Gateway) handleFriendStatus(conn Conn, data json.RawMessage) {
	if _, ok := g.registry.LookupUser(conn.ID()); !ok {
		g.sendError(conn, "join required")
		return
	}
	var req domain.FriendStatusRequest
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.FriendID) == "" {
		g.sendError(conn, "friendId is required")
		return
	}
	entry := g.notifier.PresenceOf(req.FriendID)
	g.send(conn, domain.EventFriendStatusResponse, domain.FriendStatusResponse{
		FriendID:     req.FriendID,
		Status:       entry.Status,
		IsOnline:     entry.IsOnline,
		LastSeen:     entry.LastSeen,
		LastActivity: entry.LastActivity,
	})
}

func (g *Gateway) handleCurrentStatus(conn Conn) {
	userID, ok := g.registry.LookupUser(conn.ID())
	if !ok {
		g.sendError(conn, "join required")
		return
	}
	entry := g.notifier.PresenceOf(userID)
	g.send(conn, domain.EventCurrentStatusResp, domain.CurrentStatusResponse{
		UserID:       userID,
		Status:       entry.Status,
		IsOnline:     entry.IsOnline,
		LastSeen:     entry.LastSeen,
		LastActivity: entry.LastActivity,
	})
}

func (g *Gateway) handleRoomJoin(conn Conn, data json.RawMessage) {
	if _, ok := g.registry.LookupUser(conn.ID()); !ok {
		g.sendError(conn, "join required")
		return
	}
	var req domain.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.RoomID) == "" {
		g.sendError(conn, "roomId is required")
		return
	}
	g.rooms.Join(req.RoomID, conn)
}

func (g *Gateway) handleRoomLeave(conn Conn, data json.RawMessage) {
	var req domain.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.RoomID) == "" {
		g.sendError(conn, "roomId is required")
		return
	}
	g.rooms.Leave(req.RoomID, conn)
}

func (g *Gateway) handleRoomMessage(ctx context.Context, conn Conn, data json.RawMessage) {
	userID, ok := g.registry.LookupUser(conn.ID())
	if !ok {
		g.sendError(conn, "join required")
		return
	}
	var req domain.RoomMessage
	if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.Body) == "" {
		g.sendError(conn, "roomId and body are required")
		return
	}
	req.UserID = userID
	if user, ok := g.registry.User(userID); ok {
		req.Username = user.Username
	}
	req.SentAt = time.Now()

	g.rooms.Publish(ctx, req.RoomID, outbound{Event: domain.EventChatRoomMessage, Data: req})
	g.publish(ctx, "chat.message", req)
}

// Disconnect runs the transport-level cleanup path. Idempotent: a socket that
// was already removed (for example by a heartbeat timeout) is a no-op.
func (g *Gateway) Disconnect(ctx context.Context, conn Conn) {
	g.dropSocket(ctx, conn.ID(), "client_disconnect")
}

func (g *Gateway) expireSocket(socketID string) {
	conn, hasConn := g.registry.Conn(socketID)
	commonlog.Warnf("event=presence_gateway action=heartbeat_timeout socket_id=%s", socketID)
	g.dropSocket(context.Background(), socketID, "heartbeat_timeout")
	if hasConn {
		_ = conn.Close()
	}
}

func (g *Gateway) dropSocket(ctx context.Context, socketID, reason string) {
	g.monitor.Forget(socketID)
	if conn, ok := g.registry.Conn(socketID); ok {
		g.rooms.LeaveAll(conn)
	}

	user, last, known := g.registry.Unregister(socketID)
	if !known {
		return
	}
	commonlog.Infof("event=presence_gateway action=disconnect reason=%s user_id=%s socket_id=%s last_socket=%t", reason, user.UserID, socketID, last)
	if !last {
		return
	}

	// Disconnects flip the live view to OFFLINE but never touch the status
	// history, so the real status survives for the next reconnect.
	now := time.Now()
	g.statuses.MarkSeen(user.UserID, now)
	user.Status = domain.StatusOffline
	user.LastSeen = now
	g.notifier.BroadcastStatus(ctx, user, false)
	g.publish(ctx, "presence.left", user)
}

// FriendsSnapshot exposes the presence snapshot to the REST surface.
func (g *Gateway) FriendsSnapshot(ctx context.Context, userID string) ([]domain.FriendPresence, error) {
	return g.notifier.Snapshot(ctx, userID)
}

func (g *Gateway) PresenceOf(userID string) domain.FriendPresence {
	return g.notifier.PresenceOf(userID)
}

// Shutdown clears every outstanding heartbeat timer.
func (g *Gateway) Shutdown() {
	g.monitor.Shutdown()
}

func (g *Gateway) sendPing(socketID string) {
	if conn, ok := g.registry.Conn(socketID); ok {
		g.send(conn, domain.EventHeartbeatPing, domain.HeartbeatSignal{Timestamp: time.Now()})
	}
}

func (g *Gateway) send(conn Conn, event string, data any) {
	if err := conn.WriteJSON(outbound{Event: event, Data: data}); err != nil {
		commonlog.Debugf("event=presence_gateway action=write status=failed socket_id=%s name=%s error=%v", conn.ID(), event, err)
	}
}

func (g *Gateway) sendError(conn Conn, message string) {
	g.send(conn, domain.EventStatusUpdateError, domain.StatusUpdateError{Error: message, Timestamp: time.Now()})
}

func (g *Gateway) publish(ctx context.Context, key string, payload any) {
	if g.events == nil {
		return
	}
	if err := g.events.Publish(ctx, key, payload); err != nil {
		commonlog.Warnf("event=presence_gateway action=publish status=failed key=%s error=%v", key, err)
	}
}
