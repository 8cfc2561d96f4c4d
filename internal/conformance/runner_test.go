package conformance

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/auth"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/breaker"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/events"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/httpserver"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/registry"
)

// fakeIdentities maps a bearer token to the X-User-* headers a real
// auth service would resolve it to, standing in for
// original_source/fake_cerberus.py in these tests.
var fakeIdentities = map[string]map[string]string{
	"admin_token": {
		"X-User-Id":          "u-admin",
		"X-User-Name":        "referee",
		"X-User-Role":        "admin",
		"X-User-Affiliation": "",
	},
	"hero_token": {
		"X-User-Id":          "u-hero",
		"X-User-Name":        "oracle",
		"X-User-Role":        "user",
		"X-User-Affiliation": "home_team",
	},
	"villain_token": {
		"X-User-Id":          "u-villain",
		"X-User-Name":        "nemesis",
		"X-User-Role":        "user",
		"X-User-Affiliation": "away_team",
	},
	"hero2_token": {
		"X-User-Id":          "u-hero2",
		"X-User-Name":        "second-string",
		"X-User-Role":        "user",
		"X-User-Affiliation": "home_team",
	},
}

// newFakeAuthServer reimplements original_source/fake_cerberus.py's
// OPTIONS /introspect contract: it resolves a bearer token to X-User-*
// response headers, or 401s unknown tokens.
func newFakeAuthServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		const prefix = "Bearer "
		var token string
		if len(authz) > len(prefix) && authz[:len(prefix)] == prefix {
			token = authz[len(prefix):]
		}
		headers, ok := fakeIdentities[token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		for k, v := range headers {
			if v != "" {
				w.Header().Set(k, v)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
}

// newConformanceServer wires a full internal/httpserver.Server against a
// fresh registry and the fake auth service, mirroring the composition
// internal/app/app.go performs for the real process.
func newConformanceServer(t *testing.T, authURL string) *httptest.Server {
	t.Helper()
	reg := registry.New()
	introspector := auth.New(authURL, breaker.DefaultConfig())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	srv := httpserver.New(reg, introspector, events.NoOp{}, logger)
	handler := httpserver.WrapWithCORS(nil, httpserver.WrapWithLogging(logger, srv.NewRouter()))
	return httptest.NewServer(handler)
}

func loadSuite(t *testing.T, path string) Suite {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	var suite Suite
	if err := json.Unmarshal(raw, &suite); err != nil {
		t.Fatalf("decode fixture %s: %v", path, err)
	}
	return suite
}

// TestConformanceSuites runs every fixture under testdata/ against a
// freshly wired server, one subtest per suite file and one nested
// subtest per case within it.
func TestConformanceSuites(t *testing.T) {
	entries, err := fs.Glob(os.DirFS("testdata"), "*.json")
	if err != nil {
		t.Fatalf("glob testdata: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no conformance fixtures found under testdata/")
	}

	authServer := newFakeAuthServer()
	defer authServer.Close()

	for _, name := range entries {
		name := name
		t.Run(name, func(t *testing.T) {
			suite := loadSuite(t, filepath.Join("testdata", name))

			apiServer := newConformanceServer(t, authServer.URL)
			defer apiServer.Close()

			tokens := map[string]string{
				"admin":   "admin_token",
				"hero":    "hero_token",
				"hero2":   "hero2_token",
				"villain": "villain_token",
			}
			ctx := NewContext(apiServer.URL, tokens)
			RunSuite(t, ctx, suite)
		})
	}
}
