package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/stretchr/testify/assert"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func newChecker() *Checker {
	return NewChecker(Config{Retrier: ratelimit.Retrier{MaxAttempts: 1}})
}

func TestAllowed(t *testing.T) {
	robots := "User-agent: *\nDisallow: /private/\n\nUser-agent: NewsDigestBot\nDisallow: /no-bots/\n"

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "allowed path", path: "/news/item", want: true},
		{name: "agent specific disallow", path: "/no-bots/page", want: false},
		{name: "root", path: "/", want: true},
	}

	server, _ := newServer(t, http.StatusOK, robots)
	checker := newChecker()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.Allowed(context.Background(), server.URL+tt.path))
		})
	}
}

func TestAllowed_DisallowAll(t *testing.T) {
	server, _ := newServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
	assert.False(t, newChecker().Allowed(context.Background(), server.URL+"/news"))
}

func TestAllowed_FailsOpen(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server, _ := newServer(t, http.StatusNotFound, "")
		assert.True(t, newChecker().Allowed(context.Background(), server.URL+"/news"))
	})

	t.Run("server error", func(t *testing.T) {
		server, _ := newServer(t, http.StatusInternalServerError, "User-agent: *\nDisallow: /\n")
		assert.True(t, newChecker().Allowed(context.Background(), server.URL+"/news"))
	})

	t.Run("unreachable", func(t *testing.T) {
		assert.True(t, newChecker().Allowed(context.Background(), "http://127.0.0.1:1/news"))
	})

	t.Run("unparseable page url", func(t *testing.T) {
		assert.True(t, newChecker().Allowed(context.Background(), "::not a url"))
	})
}

func TestAllowed_CachesPerOrigin(t *testing.T) {
	server, hits := newServer(t, http.StatusOK, "User-agent: *\nDisallow: /private/\n")
	checker := newChecker()

	assert.True(t, checker.Allowed(context.Background(), server.URL+"/a"))
	assert.False(t, checker.Allowed(context.Background(), server.URL+"/private/b"))
	assert.True(t, checker.Allowed(context.Background(), server.URL+"/c"))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}
