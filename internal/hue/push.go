package hue

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	pushDialTimeout       = 5 * time.Second
)

// PushHandler receives decoded push messages. It runs on the listener's
// read goroutine.
type PushHandler func(PushEvent)

// PushListener keeps a websocket connection to the bridge push channel.
// A dropped or failed connection schedules a single reconnect after the
// configured delay.
type PushListener struct {
	url     string
	delay   time.Duration
	handler PushHandler
	dialer  *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	timer   *time.Timer
	dialing bool
	closed  bool
	wg      sync.WaitGroup
}

// NewPushListener creates a listener for ws://host:port.
func NewPushListener(host string, port int, delay time.Duration, handler PushHandler) *PushListener {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &PushListener{
		url:     fmt.Sprintf("ws://%s/", net.JoinHostPort(host, strconv.Itoa(port))),
		delay:   delay,
		handler: handler,
		dialer:  &websocket.Dialer{HandshakeTimeout: pushDialTimeout},
	}
}

// URL returns the push endpoint.
func (l *PushListener) URL() string { return l.url }

// Start connects unless a connection is already open or being dialed. A
// successful connection cancels any pending reconnect.
func (l *PushListener) Start() {
	go l.connect()
}

// Connected reports whether a connection is currently open.
func (l *PushListener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Close stops the pending reconnect, closes the connection and waits for
// the read goroutine. It must not be called from the handler.
func (l *PushListener) Close() {
	l.mu.Lock()
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	l.wg.Wait()
}

func (l *PushListener) connect() {
	l.mu.Lock()
	if l.closed || l.conn != nil || l.dialing {
		l.mu.Unlock()
		return
	}
	l.dialing = true
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pushDialTimeout)
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	cancel()

	l.mu.Lock()
	l.dialing = false
	if err != nil {
		closed := l.closed
		l.mu.Unlock()
		pushConnectsTotal.WithLabelValues("error").Inc()
		if !closed {
			log.Warn().Err(err).Str("url", l.url).Dur("retry_in", l.delay).Msg("Push channel connect failed")
			l.scheduleReconnect()
		}
		return
	}
	if l.closed {
		l.mu.Unlock()
		conn.Close()
		return
	}
	l.conn = conn
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.wg.Add(1)
	l.mu.Unlock()

	pushConnectsTotal.WithLabelValues("success").Inc()
	log.Info().Str("url", l.url).Msg("Connected to bridge push channel")
	go l.readLoop(conn)
}

func (l *PushListener) scheduleReconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.timer != nil {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(l.delay, func() {
		l.mu.Lock()
		if l.timer == t {
			l.timer = nil
		}
		l.mu.Unlock()
		l.connect()
	})
	l.timer = t
}

func (l *PushListener) readLoop(conn *websocket.Conn) {
	defer l.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			l.mu.Lock()
			if l.conn == conn {
				l.conn = nil
			}
			closed := l.closed
			l.mu.Unlock()
			conn.Close()

			if !closed {
				log.Warn().Err(err).Dur("retry_in", l.delay).Msg("Push channel closed")
				l.scheduleReconnect()
			}
			return
		}
		l.dispatch(data)
	}
}

func (l *PushListener) dispatch(data []byte) {
	var ev PushEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		pushMessagesTotal.WithLabelValues("malformed").Inc()
		log.Debug().Err(err).Msg("Dropping malformed push message")
		return
	}
	pushMessagesTotal.WithLabelValues("ok").Inc()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("resource", string(ev.Resource)).Str("id", ev.ID).Msg("Push handler panicked")
		}
	}()
	l.handler(ev)
}
