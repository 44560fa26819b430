package auth

import (
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	mgr := NewSessionManager("test-secret-key-123")
	sess, err := mgr.Issue("player-42", "Astrid")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if sess.ExpiresIn != int(defaultSessionExpiry.Seconds()) {
		t.Errorf("expected expires_in=%d, got %d", int(defaultSessionExpiry.Seconds()), sess.ExpiresIn)
	}

	claims, err := mgr.Validate(sess.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.PlayerID != "player-42" {
		t.Errorf("expected player_id=player-42, got %s", claims.PlayerID)
	}
	if claims.Subject != "player-42" {
		t.Errorf("expected subject=player-42, got %s", claims.Subject)
	}
	if claims.Name != "Astrid" {
		t.Errorf("expected name=Astrid, got %s", claims.Name)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	mgr1 := NewSessionManager("secret-one")
	mgr2 := NewSessionManager("secret-two")

	sess, err := mgr1.Issue("player-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := mgr2.Validate(sess.Token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateGarbage(t *testing.T) {
	mgr := NewSessionManager("test-secret")
	if _, err := mgr.Validate("not-a-jwt"); err == nil {
		t.Error("expected error for garbage token")
	}
	if _, err := mgr.Validate(""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := &SessionManager{
		secret: []byte("test-secret"),
		expiry: -1 * time.Second,
	}
	sess, err := mgr.Issue("player-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := mgr.Validate(sess.Token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestDifferentPlayersGetDifferentTokens(t *testing.T) {
	mgr := NewSessionManager("test-secret")
	s1, _ := mgr.Issue("alice", "")
	s2, _ := mgr.Issue("bob", "")
	if s1.Token == s2.Token {
		t.Error("different players should get different tokens")
	}
}
