// Package auth implements the bearer/cookie token introspection boundary,
// ported in meaning (not code) from original_source/fimbulwinter.py's
// introspect_with_cerberus and the protected(role) decorator.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/breaker"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"
)

// Identity is the authenticated caller's identity, recovered from the
// auth service's response headers.
type Identity struct {
	UserID          string
	UserName        string
	UserRole        string
	UserAffiliation string
}

// Introspector extracts a bearer token from a request and resolves it to
// an Identity via an external auth service, fronted by a circuit breaker.
type Introspector struct {
	serviceURL string
	client     *breaker.HTTPClient
	timeout    time.Duration
}

// New constructs an Introspector. serviceURL is the auth service's
// introspection endpoint (AUTH_SERVICE_URL).
func New(serviceURL string, brkCfg breaker.Config) *Introspector {
	return &Introspector{
		serviceURL: serviceURL,
		client:     breaker.NewHTTPClient("auth-introspect", brkCfg, serviceURL, nil),
		timeout:    3 * time.Second,
	}
}

// ExtractToken reads the bearer token from the Authorization header, or
// falls back to the "jwt" cookie, matching fimbulwinter.py's extraction
// order (Authorization header first, cookie second).
func ExtractToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(strings.ToLower(h), "bearer ") {
			return strings.TrimSpace(h[len("bearer "):]), true
		}
	}
	if c, err := r.Cookie("jwt"); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// Identify performs the introspection call and returns the caller's
// Identity. It honors a 3s timeout budget regardless of the caller's
// context deadline, and maps breaker trips / timeouts to ServiceUnavailable.
func (in *Introspector) Identify(ctx context.Context, token string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, in.serviceURL, nil)
	if err != nil {
		return Identity{}, &matchcore.Error{Kind: matchcore.KindInternal, Message: "failed to build introspection request"}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := in.client.Do(req)
	if err != nil {
		return Identity{}, &matchcore.Error{Kind: matchcore.KindServiceUnavailable, Message: "auth service is unavailable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Identity{}, &matchcore.Error{Kind: matchcore.KindUnauthenticated, Message: "invalid or expired token"}
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, &matchcore.Error{Kind: matchcore.KindServiceUnavailable, Message: "auth service returned an unexpected status"}
	}

	id := Identity{
		UserID:          resp.Header.Get("X-User-Id"),
		UserName:        resp.Header.Get("X-User-Name"),
		UserRole:        resp.Header.Get("X-User-Role"),
		UserAffiliation: resp.Header.Get("X-User-Affiliation"),
	}
	if id.UserID == "" {
		return Identity{}, &matchcore.Error{Kind: matchcore.KindUnauthenticated, Message: "auth service did not resolve an identity"}
	}
	return id, nil
}

// RequireRole fails with Unauthorized unless id.UserRole == role, mirroring
// fimbulwinter.py's protected(role) decorator.
func RequireRole(id Identity, role string) error {
	if id.UserRole != role {
		return &matchcore.Error{Kind: matchcore.KindUnauthorized, Message: "caller does not hold the required role"}
	}
	return nil
}
