package service

import (
	"context"
	"time"

	commonlog "fitgym_server/server/common/log"
	"fitgym_server/server/presence/domain"
)

// FriendSource is the read-only friendship collaborator owned by the
// persistence layer.
type FriendSource interface {
	ListAccepted(ctx context.Context, userID string) ([]domain.Friend, error)
}

// Notifier fans one user's status change out to the live sockets of their
// accepted friends. Delivery is best-effort and at-most-once per socket; a
// friend with no open socket simply misses the event.
type Notifier struct {
	registry *Registry
	statuses *StatusStore
	friends  FriendSource
}

func NewNotifier(registry *Registry, statuses *StatusStore, friends FriendSource) *Notifier {
	return &Notifier{registry: registry, statuses: statuses, friends: friends}
}

// BroadcastStatus pushes a status change to every connected friend socket.
// A lookup failure skips this fan-out cycle; the status change itself is
// already committed locally.
func (n *Notifier) BroadcastStatus(ctx context.Context, user domain.ConnectedUser, isOnline bool) {
	friends, err := n.friends.ListAccepted(ctx, user.UserID)
	if err != nil {
		commonlog.Warnf("event=presence_fanout action=list_friends status=skipped user_id=%s error=%v", user.UserID, err)
		return
	}

	change := domain.FriendStatusChange{
		UserID:    user.UserID,
		Username:  user.Username,
		Status:    user.Status,
		IsOnline:  isOnline,
		LastSeen:  user.LastSeen,
		Timestamp: time.Now(),
	}
	evt := outbound{Event: domain.EventFriendStatusChanged, Data: change}

	delivered := 0
	for _, friend := range friends {
		for _, conn := range n.registry.ConnsFor(friend.ID) {
			if err := conn.WriteJSON(evt); err != nil {
				commonlog.Debugf("event=presence_fanout action=write status=failed user_id=%s friend_id=%s socket_id=%s error=%v", user.UserID, friend.ID, conn.ID(), err)
				continue
			}
			delivered++
		}
	}
	commonlog.Infof("event=presence_fanout action=broadcast status=%s user_id=%s online=%t fanout_count=%d", user.Status, user.UserID, isOnline, delivered)
}

// Snapshot builds the full friends-with-presence view for a freshly joined
// user: connected friends show their live status, disconnected ones show
// OFFLINE with the last time they were seen.
func (n *Notifier) Snapshot(ctx context.Context, userID string) ([]domain.FriendPresence, error) {
	friends, err := n.friends.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.FriendPresence, 0, len(friends))
	for _, friend := range friends {
		entry := n.PresenceOf(friend.ID)
		entry.Username = friend.Username
		if entry.Avatar == "" {
			entry.Avatar = friend.Avatar
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// PresenceOf is the point query behind request-friend-status and
// get-current-status. It never mutates state.
func (n *Notifier) PresenceOf(userID string) domain.FriendPresence {
	if user, ok := n.registry.User(userID); ok {
		lastSeen := user.LastSeen
		lastActivity := user.LastActivity
		return domain.FriendPresence{
			UserID:       userID,
			Username:     user.Username,
			Status:       user.Status,
			IsOnline:     user.Status != domain.StatusOffline,
			LastSeen:     &lastSeen,
			LastActivity: &lastActivity,
			Avatar:       user.Avatar,
		}
	}

	entry := domain.FriendPresence{
		UserID:   userID,
		Status:   domain.StatusOffline,
		IsOnline: false,
	}
	if at, ok := n.statuses.LastSeen(userID); ok {
		entry.LastSeen = &at
	}
	return entry
}
