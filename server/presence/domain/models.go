package domain

import "time"

type UserStatus string

const (
	StatusOnline       UserStatus = "ONLINE"
	StatusAway         UserStatus = "AWAY"
	StatusDoNotDisturb UserStatus = "DO_NOT_DISTURB"
	StatusOffline      UserStatus = "OFFLINE"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusDoNotDisturb, StatusOffline:
		return true
	}
	return false
}

// ConnectedUser is the live presence record for a user with at least one open
// socket. SocketID holds the most recently registered socket.
type ConnectedUser struct {
	SocketID     string     `json:"socket_id"`
	UserID       string     `json:"user_id"`
	Username     string     `json:"username"`
	Status       UserStatus `json:"status"`
	LastSeen     time.Time  `json:"last_seen"`
	LastActivity time.Time  `json:"last_activity"`
	Avatar       string     `json:"avatar,omitempty"`
}

type UserActivity struct {
	UserID         string    `json:"user_id"`
	LastActivity   time.Time `json:"last_activity"`
	HeartbeatCount int64     `json:"heartbeat_count"`
}

type Friend struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type FriendPresence struct {
	UserID       string     `json:"userId"`
	Username     string     `json:"username"`
	Status       UserStatus `json:"status"`
	IsOnline     bool       `json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
}

type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
