package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"humanizer/internal/api"
	"humanizer/internal/captcha"
	"humanizer/internal/client"
	"humanizer/internal/engine"
	"humanizer/internal/humanize"
	"humanizer/internal/models"
	"humanizer/internal/ratelimit"
	"humanizer/internal/score"
	"humanizer/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end tests over a real router, service and bucket store.

func newServer(t *testing.T, cfg *models.Config) *httptest.Server {
	t.Helper()

	store, err := storage.NewFactory().Create(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	service := humanize.NewService(humanize.Dependencies{
		Verifier: captcha.New(cfg.Security.Captcha),
		Limiter:  ratelimit.NewTokenBucket(store, cfg.Security.RateLimit.MaxTokens, cfg.Security.RateLimit.RefillInterval),
		Engine:   engine.New(cfg.Engine),
		Scorer:   score.New(),
		Store:    store,
	})

	router := api.SetupRoutes(api.NewHandlers(service, api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)), cfg)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func sqliteConfig(t *testing.T) *models.Config {
	cfg := models.NewDefaultConfig()
	cfg.Storage.Type = models.StorageTypeSQLite
	cfg.Storage.Database.DSN = filepath.Join(t.TempDir(), "buckets.db")
	return cfg
}

func request(text string) models.HumanizeRequest {
	intensity := 50.0
	return models.HumanizeRequest{Text: text, Tone: "professional", Intensity: &intensity}
}

func TestIntegration_TokenBucketOverHTTP(t *testing.T) {
	server := newServer(t, sqliteConfig(t))
	ctx := context.Background()
	c := client.New(server.URL, client.WithDeviceKey("device:integration"))

	for i := 0; i < 5; i++ {
		resp, err := c.Humanize(ctx, request("We will utilize the new process. It commenced yesterday."))
		require.NoError(t, err, "request %d", i+1)
		assert.NotEmpty(t, resp.HumanizedText)
		assert.GreaterOrEqual(t, resp.AIScore, score.MinScore)
		assert.LessOrEqual(t, resp.AIScore, score.MaxScore)
	}

	_, err := c.Humanize(ctx, request("One more request please."))
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok, "expected API error, got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, models.ErrorCodeRateLimited, apiErr.Code)
	assert.GreaterOrEqual(t, apiErr.RetryAfter, 1)
	assert.LessOrEqual(t, apiErr.RetryAfter, 30)
	assert.Contains(t, apiErr.Message, fmt.Sprintf("%d second", apiErr.RetryAfter))

	other := client.New(server.URL, client.WithDeviceKey("device:someone-else"))
	_, err = other.Humanize(ctx, request("A different device still has tokens."))
	assert.NoError(t, err)
}

func TestIntegration_LocalEngineRewrites(t *testing.T) {
	server := newServer(t, sqliteConfig(t))

	resp, err := client.New(server.URL, client.WithDeviceKey("device:local")).
		Humanize(context.Background(), request("We utilize tools. Work commenced early."))
	require.NoError(t, err)

	assert.Contains(t, resp.HumanizedText, "use")
	assert.Contains(t, resp.HumanizedText, "started")
	assert.NotContains(t, resp.HumanizedText, "utilize")
}

func TestIntegration_InvalidInputConsumesNoTokens(t *testing.T) {
	server := newServer(t, sqliteConfig(t))
	ctx := context.Background()
	c := client.New(server.URL, client.WithDeviceKey("device:invalid"))

	for i := 0; i < 10; i++ {
		_, err := c.Humanize(ctx, request("<b></b>  "))
		apiErr, ok := client.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrorCodeValidation, apiErr.Code)
	}

	for i := 0; i < 5; i++ {
		_, err := c.Humanize(ctx, request("Perfectly valid text."))
		require.NoError(t, err, "request %d", i+1)
	}
}

func TestIntegration_RemoteEngine(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "success",
			status:     http.StatusOK,
			body:       `{"choices":[{"message":{"role":"assistant","content":"  Rewritten by the model.  "}}]}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "upstream rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":"slow down"}`,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   models.ErrorCodeRateLimited,
			wantMsg:    "Rate limit exceeded. Please try again in a moment.",
		},
		{
			name:       "credits exhausted",
			status:     http.StatusPaymentRequired,
			body:       `{"error":"pay up"}`,
			wantStatus: http.StatusPaymentRequired,
			wantCode:   models.ErrorCodeQuotaExhausted,
			wantMsg:    "AI credits exhausted. Please add credits to continue.",
		},
		{
			name:       "upstream failure",
			status:     http.StatusBadGateway,
			body:       `internal upstream detail`,
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.ErrorCodeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var auth string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer upstream.Close()

			cfg := sqliteConfig(t)
			cfg.Engine.APIKey = "test-key"
			cfg.Engine.BaseURL = upstream.URL
			server := newServer(t, cfg)

			resp, err := client.New(server.URL, client.WithDeviceKey("device:remote")).
				Humanize(context.Background(), request("Some machine text."))
			assert.Equal(t, "Bearer test-key", auth)

			if tt.wantStatus == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "Rewritten by the model.", resp.HumanizedText)
				return
			}

			apiErr, ok := client.AsAPIError(err)
			require.True(t, ok, "expected API error, got %v", err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			}
			assert.NotContains(t, apiErr.Message, "upstream detail")
		})
	}
}

func TestIntegration_Captcha(t *testing.T) {
	var verifications atomic.Int32
	siteverify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifications.Add(1)
		require.NoError(t, r.ParseForm())
		scoreValue := 0.9
		if r.PostForm.Get("response") == "bot-token" {
			scoreValue = 0.2
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "score": scoreValue})
	}))
	defer siteverify.Close()

	cfg := sqliteConfig(t)
	cfg.Security.Captcha.Secret = "captcha-secret"
	cfg.Security.Captcha.VerifyURL = siteverify.URL
	server := newServer(t, cfg)
	c := client.New(server.URL, client.WithDeviceKey("device:captcha"))
	ctx := context.Background()

	human := request("Text from a person.")
	human.RecaptchaToken = "human-token"
	_, err := c.Humanize(ctx, human)
	require.NoError(t, err)

	bot := request("Text from a bot.")
	bot.RecaptchaToken = "bot-token"
	_, err = c.Humanize(ctx, bot)
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, models.ErrorCodeSecurityCheckFailed, apiErr.Code)

	_, err = c.Humanize(ctx, request("No token at all."))
	apiErr, ok = client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	assert.Equal(t, int32(2), verifications.Load(), "empty tokens are rejected without a round trip")
}

func TestIntegration_CORSAndHealth(t *testing.T) {
	server := newServer(t, sqliteConfig(t))

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/humanize", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://somewhere.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", resp.Header.Get("Access-Control-Allow-Headers"))

	health, err := client.New(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusHealthy, health.Status)
	assert.Equal(t, engine.VariantLocal, health.Metrics["engine_variant"])
	assert.Equal(t, models.StatusHealthy, health.Components["storage"].Status)
}

func TestIntegration_BodyLimit(t *testing.T) {
	server := newServer(t, sqliteConfig(t))

	body := `{"text":"` + strings.Repeat("a", 66<<10) + `","tone":"neutral","intensity":10}`
	resp, err := http.Post(server.URL+"/humanize", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
