package service

import (
	"testing"
	"time"

	"fitgym_server/server/presence/domain"
)

func TestRegistryMultiDeviceLifecycle(t *testing.T) {
	r := NewRegistry()
	phone := newFakeConn("sock-phone")
	laptop := newFakeConn("sock-laptop")

	r.Register(phone, "u1", "ana", "", domain.StatusOnline)
	r.Register(laptop, "u1", "ana", "", domain.StatusOnline)

	if got := len(r.LookupSockets("u1")); got != 2 {
		t.Fatalf("expected 2 sockets, got %d", got)
	}
	if userID, ok := r.LookupUser("sock-phone"); !ok || userID != "u1" {
		t.Fatalf("expected sock-phone to map to u1, got %q ok=%t", userID, ok)
	}

	user, last, known := r.Unregister("sock-phone")
	if !known || last {
		t.Fatalf("first unregister: known=%t last=%t, want known and not last", known, last)
	}
	if user.UserID != "u1" {
		t.Fatalf("expected snapshot for u1, got %q", user.UserID)
	}
	if _, ok := r.User("u1"); !ok {
		t.Fatal("user should stay present while a socket remains")
	}

	user, last, known = r.Unregister("sock-laptop")
	if !known || !last {
		t.Fatalf("final unregister: known=%t last=%t, want known and last", known, last)
	}
	if user.Username != "ana" {
		t.Fatalf("expected final snapshot to carry username, got %q", user.Username)
	}
	if _, ok := r.User("u1"); ok {
		t.Fatal("user entry must be removed after the last socket disconnects")
	}
	if _, ok := r.Activity("u1"); ok {
		t.Fatal("activity entry must be removed with the last socket")
	}
}

func TestRegistryRebindReleasesPreviousUser(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("sock-1")

	r.Register(conn, "u1", "ana", "", domain.StatusOnline)
	r.Register(conn, "u2", "bea", "", domain.StatusOnline)

	if _, ok := r.User("u1"); ok {
		t.Fatal("rebinding the socket must release the previous user")
	}
	if got := len(r.LookupSockets("u1")); got != 0 {
		t.Fatalf("previous user must keep no sockets, got %d", got)
	}
	if userID, ok := r.LookupUser("sock-1"); !ok || userID != "u2" {
		t.Fatalf("expected sock-1 to map to u2, got %q ok=%t", userID, ok)
	}

	user, last, known := r.Unregister("sock-1")
	if !known || !last || user.UserID != "u2" {
		t.Fatalf("unregister after rebind: known=%t last=%t user=%q", known, last, user.UserID)
	}
	if _, ok := r.User("u2"); ok {
		t.Fatal("no presence entry may survive the last disconnect")
	}
	if _, ok := r.Activity("u1"); ok {
		t.Fatal("previous user's activity entry must be released on rebind")
	}
}

func TestRegistryRebindSameUserKeepsSocket(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("sock-1")

	r.Register(conn, "u1", "ana", "", domain.StatusOnline)
	r.Register(conn, "u1", "ana", "", domain.StatusAway)

	if got := len(r.LookupSockets("u1")); got != 1 {
		t.Fatalf("re-join on the same socket must not duplicate it, got %d", got)
	}
	if user, _ := r.User("u1"); user.Status != domain.StatusAway {
		t.Fatalf("re-join must apply the new status, got %s", user.Status)
	}
}

func TestRegistryUnregisterUnknownIsNoOp(t *testing.T) {
	r := NewRegistry()
	if _, _, known := r.Unregister("missing"); known {
		t.Fatal("unknown socket must report not known")
	}

	conn := newFakeConn("sock-1")
	r.Register(conn, "u1", "ana", "", domain.StatusOnline)
	r.Unregister("sock-1")
	if _, _, known := r.Unregister("sock-1"); known {
		t.Fatal("second unregister of the same socket must be a no-op")
	}
}

func TestRegistryTouchActivity(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("sock-1")
	r.Register(conn, "u1", "ana", "", domain.StatusOnline)

	at := time.Now().Add(time.Minute)
	if !r.TouchActivity("u1", at) {
		t.Fatal("touch on registered user must succeed")
	}
	if r.TouchActivity("ghost", at) {
		t.Fatal("touch on unknown user must be a no-op")
	}

	activity, ok := r.Activity("u1")
	if !ok || activity.HeartbeatCount != 1 {
		t.Fatalf("expected heartbeat count 1, got %+v ok=%t", activity, ok)
	}
	user, _ := r.User("u1")
	if !user.LastActivity.Equal(at) || !user.LastSeen.Equal(at) {
		t.Fatalf("expected lastSeen/lastActivity refreshed to %v, got %+v", at, user)
	}
}

func TestRegistrySetStatusReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("sock-1")
	r.Register(conn, "u1", "ana", "", domain.StatusOnline)

	user, ok := r.SetStatus("u1", domain.StatusAway)
	if !ok || user.Status != domain.StatusAway {
		t.Fatalf("expected AWAY snapshot, got %+v ok=%t", user, ok)
	}
	if _, ok := r.SetStatus("ghost", domain.StatusAway); ok {
		t.Fatal("set status on unknown user must be a no-op")
	}
}
