package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", 60)

	token, err := svc.GenerateToken("u1", "ana", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	userID, username, role, err := svc.ParseAuthContext(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != "u1" || username != "ana" || role != "user" {
		t.Fatalf("unexpected claims: %s %s %s", userID, username, role)
	}
}

func TestTokenRejectedWithWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", 60).GenerateToken("u1", "ana", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := NewService("secret-b", 60).ParseToken(token); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := NewService("secret", -1).GenerateToken("u1", "ana", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := NewService("secret", -1).ParseToken(token); err == nil {
		t.Fatal("expired token must not parse")
	}
}
