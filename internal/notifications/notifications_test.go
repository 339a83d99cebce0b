package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/irrigation-controller/internal/config"
	"github.com/thatsimonsguy/irrigation-controller/internal/env"
)

func withServer(t *testing.T, status int, got *map[string]interface{}) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	origURL, origCfg := baseURL, env.Cfg
	t.Cleanup(func() {
		baseURL, env.Cfg = origURL, origCfg
		initialized = false
	})
	baseURL = srv.URL
	env.Cfg = &config.Config{NtfyTopic: "garden"}
	Init()
}

func TestSend(t *testing.T) {
	var got map[string]interface{}
	withServer(t, http.StatusOK, &got)

	require.NoError(t, Ntfy{}.Send("Low power", "5 events"))
	assert.Equal(t, "garden", got["topic"])
	assert.Equal(t, "Irrigation: Low power", got["title"])
	assert.Equal(t, "5 events", got["message"])
}

func TestSend_ErrorStatus(t *testing.T) {
	var got map[string]interface{}
	withServer(t, http.StatusTooManyRequests, &got)

	assert.Error(t, Send("x", "y"))
}

func TestSend_NotInitialized(t *testing.T) {
	initialized = false
	assert.Error(t, Send("x", "y"))
}
