package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/breaker"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"
)

func TestExtractTokenPrefersAuthorizationHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	r.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"})

	tok, ok := ExtractToken(r)
	if !ok || tok != "abc123" {
		t.Fatalf("expected abc123 from Authorization header, got %q, ok=%v", tok, ok)
	}
}

func TestExtractTokenFallsBackToCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"})

	tok, ok := ExtractToken(r)
	if !ok || tok != "cookie-token" {
		t.Fatalf("expected cookie-token, got %q, ok=%v", tok, ok)
	}
}

func TestExtractTokenMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ExtractToken(r); ok {
		t.Fatalf("expected no token to be found")
	}
}

func TestIdentifyResolvesHeadersOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User-Id", "u1")
		w.Header().Set("X-User-Name", "hero")
		w.Header().Set("X-User-Role", "user")
		w.Header().Set("X-User-Affiliation", "Alpha Team")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	in := New(srv.URL, breaker.DefaultConfig())
	id, err := in.Identify(context.Background(), "secrettoken1")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if id.UserID != "u1" || id.UserRole != "user" || id.UserAffiliation != "Alpha Team" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIdentifyMapsUnauthorizedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	in := New(srv.URL, breaker.DefaultConfig())
	_, err := in.Identify(context.Background(), "bad-token")
	var derr *matchcore.Error
	if err == nil {
		t.Fatalf("expected error for 401 response")
	}
	if e, ok := err.(*matchcore.Error); ok {
		derr = e
	}
	if derr == nil || derr.Kind != matchcore.KindUnauthenticated {
		t.Fatalf("expected KindUnauthenticated, got %+v", err)
	}
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	id := Identity{UserRole: "user"}
	if err := RequireRole(id, "admin"); err == nil {
		t.Fatalf("expected error for mismatched role")
	}
	if err := RequireRole(id, "user"); err != nil {
		t.Fatalf("expected no error for matching role, got %v", err)
	}
}
