package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthReachableUpstream(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAICompatibleClient()
	ok := client.Health(context.Background(), ChatConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	assert.True(t, ok)
	assert.Equal(t, "Bearer sk-test", gotAuth.Load())
}

func TestHealthToleratesClientErrors(t *testing.T) {
	// A 4xx (e.g. auth required on /models) still means the endpoint is up.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAICompatibleClient()
	assert.True(t, client.Health(context.Background(), ChatConfig{BaseURL: srv.URL}))
}

func TestHealthUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client := NewOpenAICompatibleClient()

	assert.False(t, client.Health(context.Background(), ChatConfig{BaseURL: srv.URL}))

	srv.Close()
	assert.False(t, client.Health(context.Background(), ChatConfig{BaseURL: srv.URL}))
}
