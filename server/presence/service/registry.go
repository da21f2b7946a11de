package service

import (
	"sync"
	"time"

	"fitgym_server/server/presence/domain"
)

// Registry owns the socket<->user maps. A socket belongs to at most one user;
// a user may hold several sockets (tabs, devices). All operations on unknown
// ids are no-ops.
type Registry struct {
	mu          sync.RWMutex
	users       map[string]*domain.ConnectedUser
	activity    map[string]*domain.UserActivity
	socketUser  map[string]string
	userSockets map[string]map[string]struct{}
	conns       map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		users:       map[string]*domain.ConnectedUser{},
		activity:    map[string]*domain.UserActivity{},
		socketUser:  map[string]string{},
		userSockets: map[string]map[string]struct{}{},
		conns:       map[string]Conn{},
	}
}

func (r *Registry) Register(conn Conn, userID, username, avatar string, status domain.UserStatus) domain.ConnectedUser {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	socketID := conn.ID()
	// A socket maps to at most one user. Re-joining under a different userId
	// releases the previous binding first so no phantom presence survives.
	if prev, ok := r.socketUser[socketID]; ok && prev != userID {
		r.unbindLocked(socketID, prev)
	}
	r.socketUser[socketID] = userID
	r.conns[socketID] = conn
	if _, ok := r.userSockets[userID]; !ok {
		r.userSockets[userID] = map[string]struct{}{}
	}
	r.userSockets[userID][socketID] = struct{}{}

	user := &domain.ConnectedUser{
		SocketID:     socketID,
		UserID:       userID,
		Username:     username,
		Status:       status,
		LastSeen:     now,
		LastActivity: now,
		Avatar:       avatar,
	}
	r.users[userID] = user

	if _, ok := r.activity[userID]; !ok {
		r.activity[userID] = &domain.UserActivity{UserID: userID, LastActivity: now}
	} else {
		r.activity[userID].LastActivity = now
	}
	return *user
}

// Unregister removes one socket and returns a snapshot of the owning user's
// presence taken under the same lock, whether this was the user's last
// socket, and whether the socket was known at all. Calling it again for an
// already removed socket is a no-op.
func (r *Registry) Unregister(socketID string) (user domain.ConnectedUser, last bool, known bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, known := r.socketUser[socketID]
	if !known {
		return domain.ConnectedUser{}, false, false
	}
	delete(r.socketUser, socketID)
	delete(r.conns, socketID)

	if entry, ok := r.users[userID]; ok {
		user = *entry
	}
	return user, r.unbindLocked(socketID, userID), true
}

// unbindLocked drops one socket from a user's socket set and clears the
// user's presence entries when it was the last one. Caller holds r.mu.
func (r *Registry) unbindLocked(socketID, userID string) (last bool) {
	sockets := r.userSockets[userID]
	delete(sockets, socketID)
	if len(sockets) > 0 {
		return false
	}
	delete(r.userSockets, userID)
	delete(r.users, userID)
	delete(r.activity, userID)
	return true
}

func (r *Registry) LookupUser(socketID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.socketUser[socketID]
	return userID, ok
}

func (r *Registry) LookupSockets(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sockets := make([]string, 0, len(r.userSockets[userID]))
	for socketID := range r.userSockets[userID] {
		sockets = append(sockets, socketID)
	}
	return sockets
}

func (r *Registry) Conn(socketID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[socketID]
	return conn, ok
}

// ConnsFor returns every live connection of a user, one write target per open
// tab or device.
func (r *Registry) ConnsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.userSockets[userID]))
	for socketID := range r.userSockets[userID] {
		if conn, ok := r.conns[socketID]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

func (r *Registry) User(userID string) (domain.ConnectedUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.ConnectedUser{}, false
	}
	return *user, true
}

func (r *Registry) Activity(userID string) (domain.UserActivity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	activity, ok := r.activity[userID]
	if !ok {
		return domain.UserActivity{}, false
	}
	return *activity, true
}

// SetStatus overwrites the live status and returns the updated snapshot, so
// broadcasts always carry the authoritative state at time of send.
func (r *Registry) SetStatus(userID string, status domain.UserStatus) (domain.ConnectedUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.ConnectedUser{}, false
	}
	user.Status = status
	user.LastSeen = time.Now()
	return *user, true
}

// TouchActivity refreshes heartbeat bookkeeping for a user.
func (r *Registry) TouchActivity(userID string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return false
	}
	user.LastSeen = at
	user.LastActivity = at
	if activity, ok := r.activity[userID]; ok {
		activity.LastActivity = at
		activity.HeartbeatCount++
	}
	return true
}
