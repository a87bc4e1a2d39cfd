package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestIssueAndVerify(t *testing.T) {
	joined := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	token, err := Issue(testSecret, "user-1", "budi@example.com", joined)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	sess, err := Verify(testSecret, token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if sess.UserID != "user-1" {
		t.Errorf("expected user id 'user-1', got %q", sess.UserID)
	}
	if sess.Email != "budi@example.com" {
		t.Errorf("expected email 'budi@example.com', got %q", sess.Email)
	}
	if !sess.JoinedAt.Equal(joined) {
		t.Errorf("expected joined at %v, got %v", joined, sess.JoinedAt)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Issue(testSecret, "user-1", "budi@example.com", time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := Verify("other-secret", token); err == nil {
		t.Error("expected verification to fail with wrong secret")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := Verify(testSecret, "not-a-token"); err == nil {
		t.Error("expected verification to fail for garbage input")
	}
}

func TestMiddlewareAttachesSession(t *testing.T) {
	token, err := Issue(testSecret, "user-1", "budi@example.com", time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var got *Session
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected session in context")
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user id 'user-1', got %q", got.UserID)
	}
}

func TestMiddlewareContinuesUnauthenticated(t *testing.T) {
	var called bool
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := FromContext(r.Context()); ok {
			t.Error("expected no session for invalid token")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("handler should run without a session")
	}
}
