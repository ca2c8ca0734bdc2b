package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

const testKey = "test-signing-key-0123456789abcdef"

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer(testKey, time.Hour)
	now := time.Now()

	tok, err := issuer.Issue("user-1", "alice", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username alice, got %s", claims.Username)
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer(testKey, time.Minute)
	tok, err := issuer.Issue("user-1", "alice", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.Verify(tok); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	issuer := NewTokenIssuer(testKey, time.Hour)
	other := NewTokenIssuer("another-key-0123456789abcdefghij", time.Hour)

	tok, err := other.Issue("user-1", "alice", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.Verify(tok); err == nil {
		t.Error("expected error for token signed with a different key")
	}
}

func TestMiddleware_RejectsMissingHeader(t *testing.T) {
	issuer := NewTokenIssuer(testKey, time.Hour)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Middleware(issuer)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_RejectsMalformedHeader(t *testing.T) {
	issuer := NewTokenIssuer(testKey, time.Hour)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Middleware(issuer)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_SetsUserIDOnContext(t *testing.T) {
	issuer := NewTokenIssuer(testKey, time.Hour)
	tok, _ := issuer.Issue("user-42", "bob", time.Now())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Middleware(issuer)(func(c echo.Context) error {
		uid := UserIDFromContext(c.Request().Context())
		if uid != "user-42" {
			t.Errorf("expected user-42 on context, got %q", uid)
		}
		return c.String(http.StatusOK, "ok")
	})

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("expected password to match its hash")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected mismatch for wrong password")
	}
}
