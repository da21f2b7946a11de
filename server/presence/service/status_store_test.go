package service

import (
	"testing"
	"time"

	"fitgym_server/server/presence/domain"
)

func TestStatusStoreDefaultsToOnline(t *testing.T) {
	s := NewStatusStore()
	if got := s.Last("unknown"); got != domain.StatusOnline {
		t.Fatalf("expected ONLINE default, got %s", got)
	}
	if s.Known("unknown") {
		t.Fatal("unknown user must not be known")
	}
}

func TestStatusStoreKeepsLastMeaningfulStatus(t *testing.T) {
	s := NewStatusStore()
	s.Set("u1", domain.StatusAway)
	s.Set("u1", domain.StatusDoNotDisturb)
	if got := s.Last("u1"); got != domain.StatusDoNotDisturb {
		t.Fatalf("expected DO_NOT_DISTURB, got %s", got)
	}
}

func TestStatusStoreIgnoresOfflineAndInvalid(t *testing.T) {
	s := NewStatusStore()
	s.Set("u1", domain.StatusDoNotDisturb)
	s.Set("u1", domain.StatusOffline)
	s.Set("u1", domain.UserStatus("SLEEPING"))
	s.Set("", domain.StatusAway)
	if got := s.Last("u1"); got != domain.StatusDoNotDisturb {
		t.Fatalf("offline/invalid writes must be ignored, got %s", got)
	}
}

func TestStatusStoreLastSeen(t *testing.T) {
	s := NewStatusStore()
	if _, ok := s.LastSeen("u1"); ok {
		t.Fatal("no last-seen recorded yet")
	}
	at := time.Now()
	s.MarkSeen("u1", at)
	got, ok := s.LastSeen("u1")
	if !ok || !got.Equal(at) {
		t.Fatalf("expected last-seen %v, got %v ok=%t", at, got, ok)
	}
}
