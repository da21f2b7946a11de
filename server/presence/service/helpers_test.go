package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"fitgym_server/server/presence/domain"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []outbound
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	evt, ok := v.(outbound)
	if !ok {
		return errors.New("unexpected payload type")
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, evt := range c.events {
		if evt.Event == event {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(event string) (outbound, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Event == event {
			return c.events[i], true
		}
	}
	return outbound{}, false
}

type fakeFriends struct {
	mu      sync.Mutex
	byUser  map[string][]domain.Friend
	failing bool
}

func newFakeFriends() *fakeFriends {
	return &fakeFriends{byUser: map[string][]domain.Friend{}}
}

func (f *fakeFriends) befriend(a, b domain.Friend) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[a.ID] = append(f.byUser[a.ID], b)
	f.byUser[b.ID] = append(f.byUser[b.ID], a)
}

func (f *fakeFriends) fail(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = on
}

func (f *fakeFriends) ListAccepted(_ context.Context, userID string) ([]domain.Friend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("friendship store unavailable")
	}
	return append([]domain.Friend(nil), f.byUser[userID]...), nil
}

func dispatch(t *testing.T, g *Gateway, conn Conn, as, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	frame, err := json.Marshal(domain.Envelope{Event: event, Data: raw})
	if err != nil {
		t.Fatalf("marshal %s envelope: %v", event, err)
	}
	g.Dispatch(context.Background(), conn, as, frame)
}

func joinUser(t *testing.T, g *Gateway, conn Conn, userID, username string, status domain.UserStatus) {
	t.Helper()
	dispatch(t, g, conn, userID, domain.EventJoin, domain.JoinRequest{UserID: userID, Username: username, Status: status})
}
