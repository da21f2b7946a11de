package domain

import (
	"encoding/json"
	"time"
)

// Inbound socket event names.
const (
	EventJoin             = "join-user-enhanced"
	EventUpdateStatus     = "update-user-status"
	EventHeartbeat        = "heartbeat"
	EventGetOnlineFriends = "get-online-friends"
	EventFriendStatusReq  = "request-friend-status"
	EventGetCurrentStatus = "get-current-status"
	EventJoinChatRoom     = "join-chat-room"
	EventLeaveChatRoom    = "leave-chat-room"
	EventChatRoomMessage  = "chat-room-message"
)

// Outbound socket event names.
const (
	EventStatusConfirmed      = "status-confirmed"
	EventStatusUpdated        = "status-updated"
	EventStatusUpdateError    = "status-update-error"
	EventHeartbeatPing        = "heartbeat-ping"
	EventHeartbeatAck         = "heartbeat-ack"
	EventFriendStatusChanged  = "friend-status-changed"
	EventOnlineFriends        = "online-friends"
	EventFriendStatusResponse = "friend-status-response"
	EventCurrentStatusResp    = "current-status-response"
)

// Envelope frames every client-to-server message. Data is decoded per event
// name before dispatch, so malformed payloads fail at the boundary.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinRequest struct {
	UserID   string     `json:"userId"`
	Username string     `json:"username"`
	Status   UserStatus `json:"status,omitempty"`
	Avatar   string     `json:"avatar,omitempty"`
}

type StatusUpdateRequest struct {
	UserID string     `json:"userId"`
	Status UserStatus `json:"status"`
}

type HeartbeatRequest struct {
	UserID string `json:"userId"`
}

type FriendStatusRequest struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

type RoomRequest struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

type RoomMessage struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username,omitempty"`
	RoomID   string    `json:"roomId"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sentAt,omitempty"`
}

type StatusConfirmed struct {
	Status    UserStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

type StatusUpdated struct {
	Status    UserStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Confirmed bool       `json:"confirmed"`
}

type StatusUpdateError struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type HeartbeatSignal struct {
	Timestamp time.Time `json:"timestamp"`
}

type FriendStatusResponse struct {
	FriendID     string     `json:"friendId"`
	Status       UserStatus `json:"status"`
	IsOnline     bool       `json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

type CurrentStatusResponse struct {
	UserID       string     `json:"userId"`
	Status       UserStatus `json:"status"`
	IsOnline     bool       `json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}

type FriendStatusChange struct {
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	Status    UserStatus `json:"status"`
	IsOnline  bool       `json:"isOnline"`
	LastSeen  time.Time  `json:"lastSeen"`
	Timestamp time.Time  `json:"timestamp"`
}
