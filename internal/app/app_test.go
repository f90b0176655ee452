package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huelink/internal/bridge"
	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/kv"
	"github.com/dokzlo13/huelink/internal/ledger"
)

type staticStatus bridge.Status

func (s staticStatus) Status() bridge.Status { return bridge.Status(s) }

func TestHealthHandler(t *testing.T) {
	cfg := &config.Config{}

	tests := []struct {
		name   string
		status bridge.Status
		path   string
		code   int
	}{
		{"health", bridge.Status{}, "/health", http.StatusOK},
		{"not_ready", bridge.Status{ID: "office", State: "unauthorized"}, "/ready", http.StatusServiceUnavailable},
		{"ready", bridge.Status{ID: "office", State: "synchronized", Linked: true, Devices: 3}, "/ready", http.StatusOK},
		{"metrics", bridge.Status{}, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthService(cfg, staticStatus(tt.status)).Handler()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	h := NewHealthService(cfg, staticStatus(bridge.Status{ID: "office", State: "synchronized", Linked: true, Devices: 3})).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "synchronized", body["state"])
	assert.Equal(t, 3.0, body["devices"])
}

func TestDeviceTypeFor(t *testing.T) {
	assert.Equal(t, "huelink", deviceTypeFor(""))
	assert.Equal(t, "huelink#1b4e28ba", deviceTypeFor("1b4e28ba-2fa1-11d2-883f-0016d3cca427"))
}

func TestSessionOptions(t *testing.T) {
	push := false
	cfg := &config.Config{Bridge: config.BridgeConfig{
		Host:          "hue.local",
		PollInterval:  config.Duration(2 * time.Second),
		MaxConcurrent: 3,
		RateLimitRPS:  5,
		Push:          &push,
	}}

	opts := sessionOptions(cfg, "abcdef123456")
	assert.Equal(t, "hue.local", opts.Host)
	assert.Equal(t, "huelink#abcdef12", opts.DeviceType)
	assert.Equal(t, 2*time.Second, opts.PollInterval)
	assert.Equal(t, 3, opts.MaxConcurrent)
	assert.Equal(t, 5.0, opts.RateLimit)
	assert.False(t, opts.Push)

	cfg.Bridge.DeviceType = "custom#box"
	assert.Equal(t, "custom#box", sessionOptions(cfg, "abc").DeviceType)
}

func TestInstanceIDIsStable(t *testing.T) {
	bucket := kv.NewMemory()
	first, err := instanceID(bucket)
	require.NoError(t, err)
	assert.Len(t, first, 36)

	second, err := instanceID(bucket)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// fakeBridge answers the full-state request for key "secret".
func fakeBridge(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || strings.Trim(r.URL.Path, "/") != "api/secret" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{
			"lights": {"1": {
				"name": "Desk", "type": "Extended color light", "modelid": "LCT015",
				"uniqueid": "00:17:88:01:00:aa:bb:cc-0b",
				"state": {"on": true, "bri": 254, "ct": 300, "colormode": "ct", "reachable": true}
			}},
			"sensors": {},
			"config": {"name": "Test bridge"}
		}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServicesStartAndStop(t *testing.T) {
	srv := fakeBridge(t)
	push := false
	cfg, err := config.Parse([]byte("bridge:\n  host: " + srv.URL + "\n"))
	require.NoError(t, err)
	cfg.Bridge.ID = "office"
	cfg.Bridge.Key = "secret"
	cfg.Bridge.Push = &push
	cfg.Bridge.PollInterval = config.Duration(time.Hour)
	cfg.Database.Path = filepath.Join(t.TempDir(), "huelink.sqlite")

	s, err := NewServices(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx, false))

	st := s.Bridge.Session.Status()
	assert.True(t, st.Ready())
	assert.Equal(t, "Test bridge", st.Name)
	assert.Equal(t, 1, st.Devices)

	l := s.Ledger
	cancel()
	// Close drains the bus, so every ledger write has landed afterwards
	s.Bridge.Close()
	s.Events.Close()

	added, err := l.GetByType(ledger.EventDeviceAdded, 10)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "hue:0017880100aabbcc-0b", added[0].DeviceID)
	assert.Equal(t, "office", added[0].Source)

	linked, err := l.GetByType(ledger.EventBridgeLinked, 10)
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	s.Close()
}

func TestAppRunReturnsAfterCancel(t *testing.T) {
	srv := fakeBridge(t)
	push := false
	cfg, err := config.Parse([]byte("bridge:\n  host: " + srv.URL + "\n"))
	require.NoError(t, err)
	cfg.Bridge.Key = "secret"
	cfg.Bridge.Push = &push
	cfg.Bridge.PollInterval = config.Duration(time.Hour)
	cfg.Database.Path = filepath.Join(t.TempDir(), "huelink.sqlite")

	a, err := New(cfg)
	require.NoError(t, err)
	session := a.services.Bridge.Session

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, false) }()

	assert.Eventually(t, func() bool { return session.Status().Ready() }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
