package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"humanizer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRemote(t *testing.T, handler http.HandlerFunc) *Remote {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewRemote(models.EngineConfig{
		APIKey:  "secret-key",
		BaseURL: server.URL + "/v1/",
		Model:   "test-model",
		Timeout: time.Second,
	}, server.Client())
}

var sampleRequest = models.ValidatedRequest{
	Text:      "Text to rewrite.",
	Tone:      models.ToneProfessional,
	Intensity: 50,
}

func TestRemote_Humanize(t *testing.T) {
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[0].Content, "business-appropriate")
		assert.Contains(t, body.Messages[0].Content, "Make moderate changes")
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "Please humanize this text:\n\nText to rewrite.", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Rewritten text.\n"}}]}`))
	})

	out, err := remote.Humanize(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten text.", out)
	assert.Equal(t, VariantRemote, remote.Variant())
}

func TestRemote_Humanize_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expectedErr error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, expectedErr: ErrUpstreamRateLimited},
		{name: "quota exhausted", status: http.StatusPaymentRequired, expectedErr: ErrUpstreamQuotaExhausted},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, expectedErr: ErrUpstream},
		{name: "unauthorized", status: http.StatusUnauthorized, expectedErr: ErrUpstream},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"   "}}]}`, expectedErr: ErrUpstream},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, expectedErr: ErrUpstream},
		{name: "malformed json", status: http.StatusOK, body: `not json`, expectedErr: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			out, err := remote.Humanize(context.Background(), sampleRequest)
			assert.Empty(t, out)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRemote_Humanize_UpstreamBodyNotInError(t *testing.T) {
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("internal stack trace"))
	})

	_, err := remote.Humanize(context.Background(), sampleRequest)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "stack trace")
}

func TestRemote_Humanize_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := remote.Humanize(ctx, sampleRequest)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_SelectsVariant(t *testing.T) {
	cfg := models.NewDefaultConfig().Engine
	assert.Equal(t, VariantLocal, New(cfg).Variant())

	cfg.APIKey = "key"
	e := New(cfg)
	assert.Equal(t, VariantRemote, e.Variant())
	assert.IsType(t, &Remote{}, e)
}
