package hue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool       { return &v }
func uint8Ptr(v uint8) *uint8    { return &v }
func uint16Ptr(v uint16) *uint16 { return &v }

func TestClientGateLimitsConcurrency(t *testing.T) {
	var current, peak, total atomic.Int32
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		current.Add(-1)
		total.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{MaxConcurrent: 2, Timeout: 5 * time.Second})
	c.SetKey("k")

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Do(context.Background(), Request{Method: http.MethodGet, Path: c.apiPath("config")}, nil)
		}()
	}

	require.Eventually(t, func() bool { return current.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), current.Load(), "queued requests must wait for a free slot")

	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(2), peak.Load())
	assert.Equal(t, int32(5), total.Load())
}

func TestParseReply(t *testing.T) {
	t.Run("object_passthrough", func(t *testing.T) {
		out, err := parseReply([]byte(` {"name":"bridge"} `), false)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"bridge"}`, string(out))
	})

	t.Run("first_success", func(t *testing.T) {
		out, err := parseReply([]byte(`[{"success":{"username":"abc"}},{"success":{"x":1}}]`), false)
		require.NoError(t, err)
		assert.JSONEq(t, `{"username":"abc"}`, string(out))
	})

	t.Run("all_successes", func(t *testing.T) {
		out, err := parseReply([]byte(`[{"success":{"a":1}},{"success":{"b":2}}]`), true)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"a":1},{"b":2}]`, string(out))
	})

	t.Run("any_error_fails", func(t *testing.T) {
		_, err := parseReply([]byte(`[{"success":{"a":1}},{"error":{"type":201,"address":"/lights/1/state/bri","description":"device is off"}}]`), true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPartialOperationFailed))

		var opErr *OperationError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, 1, opErr.Index)
		assert.Equal(t, ErrorTypeDeviceIsOff, opErr.Type)
		assert.Equal(t, "/lights/1/state/bri", opErr.Address)
	})

	t.Run("empty_list", func(t *testing.T) {
		_, err := parseReply([]byte(`[]`), false)
		assert.True(t, errors.Is(err, ErrNoReply))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseReply([]byte(`[{"success":`), false)
		assert.Error(t, err)
	})
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{Timeout: 50 * time.Millisecond})
	c.SetKey("k")

	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: c.apiPath("config")}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.NotContains(t, err.Error(), "/k/")
}

func TestClientUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "api"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClientSetLightState(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte(`[{"success":{"/lights/7/state/on":false}},{"success":{"/lights/7/state/bri":0}}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})
	c.SetKey("secret")

	err := c.SetLightState(context.Background(), "7", StateUpdate{
		On:             boolPtr(false),
		Bri:            uint8Ptr(0),
		TransitionTime: uint16Ptr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/secret/lights/7/state", gotPath)
	assert.Equal(t, map[string]any{"on": false, "bri": 0.0, "transitiontime": 4.0}, gotBody)
}

func TestClientRename(t *testing.T) {
	var paths []string
	var names []any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		paths = append(paths, r.URL.Path)
		names = append(names, body["name"])
		_, _ = w.Write([]byte(`[{"success":{"/x/name":"ok"}}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})
	c.SetKey("k")

	require.NoError(t, c.RenameLight(context.Background(), "3", "Desk"))
	require.NoError(t, c.RenameSensor(context.Background(), "12", "Hall switch"))
	assert.Equal(t, []string{"/api/k/lights/3", "/api/k/sensors/12"}, paths)
	assert.Equal(t, []any{"Desk", "Hall switch"}, names)
}

const fullStateBody = `{
	"config": {"name": "Philips hue", "bridgeid": "001788FFFE000001", "websocketport": 443},
	"lights": {
		"1": {
			"name": "Desk",
			"type": "Extended color light",
			"modelid": "LCT015",
			"uniqueid": "00:17:88:01:00:aa:bb:cc-0b",
			"state": {"on": true, "bri": 0, "colormode": "ct", "ct": 366, "xy": [0.45, 0.41], "reachable": true}
		}
	},
	"sensors": {
		"4": {
			"name": "Dimmer",
			"type": "ZLLSwitch",
			"modelid": "RWL021",
			"uniqueid": "00:17:88:01:10:5a:7d:1f-02-fc00",
			"state": {"buttonevent": 1002, "lastupdated": "2024-01-01T10:00:00"},
			"config": {"on": true, "reachable": true, "battery": 90}
		}
	}
}`

func TestClientFullState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/k", r.URL.Path)
		_, _ = w.Write([]byte(fullStateBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})
	c.SetKey("k")

	fs, err := c.FullState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Philips hue", fs.Config.Name)
	assert.Equal(t, 443, fs.Config.WebsocketPort)

	l := fs.Lights["1"]
	assert.Equal(t, "1", l.InternalID)
	assert.Equal(t, "Desk", l.Name)
	assert.Equal(t, "LCT015", l.ModelID)
	assert.Equal(t, "00:17:88:01:00:aa:bb:cc-0b", l.UniqueID)
	require.NotNil(t, l.State.Bri)
	assert.Equal(t, 0, *l.State.Bri)
	assert.Nil(t, l.State.Hue)
	assert.Equal(t, "ct", l.State.ColorMode)

	s := fs.Sensors["4"]
	assert.Equal(t, "4", s.InternalID)
	assert.Equal(t, "ZLLSwitch", s.Type)
	assert.Equal(t, 1002.0, s.State["buttonevent"])
	assert.Equal(t, true, s.Config["reachable"])
}

func TestClientCreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "huelink#test", body["devicetype"])
		_, _ = w.Write([]byte(`[{"success":{"username":"new-key"}}]`))
	}))
	defer srv.Close()

	key, err := NewClient(srv.URL, ClientConfig{}).CreateUser(context.Background(), "huelink#test")
	require.NoError(t, err)
	assert.Equal(t, "new-key", key)
}

func TestClientHostname(t *testing.T) {
	assert.Equal(t, "192.168.1.10", NewClient("192.168.1.10", ClientConfig{}).Hostname())
	assert.Equal(t, "bridge.local", NewClient("http://bridge.local:8080/", ClientConfig{}).Hostname())
}

func TestLightStateClone(t *testing.T) {
	s := LightState{On: boolPtr(true), XY: []float64{0.1, 0.2}}
	c := s.Clone()
	*c.On = false
	c.XY[0] = 0.9
	assert.True(t, *s.On)
	assert.Equal(t, 0.1, s.XY[0])
}
