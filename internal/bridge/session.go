// Package bridge keeps one lighting bridge authorized and synchronized:
// it pairs when no key is stored, polls the full state, reconciles the
// device population and routes push messages to the affected devices.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/device"
	"github.com/dokzlo13/huelink/internal/hue"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultDeviceType   = "huelink"
)

var (
	// ErrInitialLoadFailed is returned when the first poll after obtaining
	// a key fails. The key is kept and every poll tick retries.
	ErrInitialLoadFailed = errors.New("initial load failed")
	// ErrNotLinked is returned by operations that need a key when none is
	// known.
	ErrNotLinked = errors.New("bridge not linked")
)

// Storage persists the bridge authorization key.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Options configures a Session. Zero durations and counts fall back to
// the package defaults.
type Options struct {
	ID         string // stable bridge identifier, used in the storage key
	Host       string
	Key        string // optional key that skips pairing
	DeviceType string // devicetype sent when pairing

	PollInterval   time.Duration
	RequestTimeout time.Duration
	PollTimeout    time.Duration
	ReconnectDelay time.Duration
	PairInterval   time.Duration
	PairAttempts   int
	MaxConcurrent  int
	RateLimit      float64 // requests per second, 0 = unlimited

	// Push enables the websocket listener when the bridge advertises a
	// port.
	Push bool
}

func (o Options) withDefaults() Options {
	if o.ID == "" {
		o.ID = o.Host
	}
	if o.DeviceType == "" {
		o.DeviceType = DefaultDeviceType
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = hue.DefaultReconnectDelay
	}
	return o
}

// Session owns the connection to one bridge and the devices behind it.
type Session struct {
	opts     Options
	client   *hue.Client
	pairer   *hue.Pairer
	storage  Storage
	observer device.Observer

	// writer serializes every mutation of the arena and of device state.
	// Adapters share it for their optimistic updates.
	writer sync.Mutex
	arena  *arena

	mu       sync.RWMutex
	state    State
	linked   bool
	name     string
	lastPoll time.Time
	push     *hue.PushListener
	pushPort int
	closed   bool

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a session. Nothing talks to the bridge until Start.
func New(opts Options, storage Storage, observer device.Observer) *Session {
	opts = opts.withDefaults()
	if observer == nil {
		observer = device.NopObserver{}
	}

	client := hue.NewClient(opts.Host, hue.ClientConfig{
		MaxConcurrent: opts.MaxConcurrent,
		Timeout:       opts.RequestTimeout,
		PollTimeout:   opts.PollTimeout,
		RateLimit:     opts.RateLimit,
	})

	s := &Session{
		opts:     opts,
		client:   client,
		pairer:   hue.NewPairer(client, opts.DeviceType, opts.PairAttempts, opts.PairInterval),
		storage:  storage,
		observer: observer,
		arena:    newArena(),
	}
	s.setState(StateUnauthorized)
	return s
}

// ID returns the bridge identifier.
func (s *Session) ID() string { return s.opts.ID }

func (s *Session) storageKey() string {
	return "hue:" + s.opts.ID + ":key"
}

// Start loads the stored key, runs the initial load when a key is known
// and starts the poll loop. The loop keeps running after an
// ErrInitialLoadFailed and retries on every tick.
func (s *Session) Start(ctx context.Context) error {
	key := s.opts.Key
	if key == "" {
		stored, ok, err := s.storage.Get(ctx, s.storageKey())
		if err != nil {
			return fmt.Errorf("load bridge key: %w", err)
		}
		if ok {
			key = stored
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(loopCtx)

	if key == "" {
		log.Info().Str("bridge", s.opts.ID).Msg("No bridge key stored, link required")
		return nil
	}

	s.client.SetKey(key)
	return s.initialLoad(ctx)
}

// Link pairs with the bridge, persists the new key and runs the initial
// load. The bridge link button must be pressed during pairing.
func (s *Session) Link(ctx context.Context) error {
	s.setState(StateAuthorizing)
	log.Info().Str("bridge", s.opts.ID).Msg("Pairing with bridge, press the link button")

	key, err := s.pairer.Pair(ctx)
	if err != nil {
		s.setState(StateUnauthorized)
		return err
	}

	if err := s.storage.Set(ctx, s.storageKey(), key); err != nil {
		s.setState(StateUnauthorized)
		return fmt.Errorf("persist bridge key: %w", err)
	}
	s.client.SetKey(key)

	return s.initialLoad(ctx)
}

// HasKey reports whether an application key is known, stored or paired.
func (s *Session) HasKey() bool { return s.client.Key() != "" }

// Poll fetches the full state once and reconciles. Before the initial load
// succeeded it retries the initial load instead.
func (s *Session) Poll(ctx context.Context) error {
	if s.client.Key() == "" {
		return ErrNotLinked
	}
	if !s.Linked() {
		return s.initialLoad(ctx)
	}
	if err := s.poll(ctx); err != nil {
		s.setState(StateDegraded)
		return err
	}
	return nil
}

func (s *Session) initialLoad(ctx context.Context) error {
	if err := s.poll(ctx); err != nil {
		s.mu.Lock()
		s.linked = false
		s.mu.Unlock()
		s.setState(StateUnauthorized)
		return fmt.Errorf("%w: %v", ErrInitialLoadFailed, err)
	}

	s.mu.Lock()
	first := !s.linked
	s.linked = true
	s.mu.Unlock()

	if first {
		st := s.Status()
		log.Info().
			Str("bridge", s.opts.ID).
			Str("name", st.Name).
			Int("devices", st.Devices).
			Msg("Bridge synchronized")
		if o, ok := s.observer.(SessionObserver); ok {
			o.SessionLinked(s.opts.ID, st.Name)
		}
	}
	return nil
}

// poll runs one full-state request and reconciles the result.
func (s *Session) poll(ctx context.Context) error {
	start := time.Now()
	fs, err := s.client.FullState(ctx)
	if err != nil {
		pollsTotal.WithLabelValues(s.opts.ID, "error").Inc()
		return err
	}

	s.writer.Lock()
	c := s.reconcile(descriptors(fs))
	count := len(s.arena.devices)
	s.writer.Unlock()

	pollsTotal.WithLabelValues(s.opts.ID, "success").Inc()
	pollDuration.WithLabelValues(s.opts.ID).Observe(time.Since(start).Seconds())
	reconcileChangesTotal.WithLabelValues(s.opts.ID, "added").Add(float64(c.added))
	reconcileChangesTotal.WithLabelValues(s.opts.ID, "updated").Add(float64(c.updated))
	reconcileChangesTotal.WithLabelValues(s.opts.ID, "removed").Add(float64(c.removed))
	managedDevices.WithLabelValues(s.opts.ID).Set(float64(count))

	s.mu.Lock()
	s.name = fs.Config.Name
	s.lastPoll = time.Now()
	s.mu.Unlock()
	s.setState(StateSynchronized)

	s.ensurePush(fs.Config.WebsocketPort)
	return nil
}

func (s *Session) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Poll(ctx)
			switch {
			case err == nil, errors.Is(err, ErrNotLinked):
			case ctx.Err() != nil:
				return
			default:
				log.Warn().Err(err).Str("bridge", s.opts.ID).Str("state", s.State().String()).Msg("Bridge poll failed")
			}
		}
	}
}

// ensurePush keeps one push listener on the websocket port the bridge
// advertises. A changed port replaces the listener and a withdrawn port
// stops it.
func (s *Session) ensurePush(port int) {
	if !s.opts.Push {
		return
	}
	port = max(port, 0)

	s.mu.Lock()
	if s.closed || port == s.pushPort {
		s.mu.Unlock()
		return
	}
	old := s.push
	s.push, s.pushPort = nil, port
	if port > 0 {
		s.push = hue.NewPushListener(s.client.Hostname(), port, s.opts.ReconnectDelay, s.applyPush)
		log.Info().Str("bridge", s.opts.ID).Str("url", s.push.URL()).Msg("Starting push listener")
		s.push.Start()
	}
	s.mu.Unlock()

	if old != nil {
		log.Info().Str("bridge", s.opts.ID).Str("url", old.URL()).Msg("Stopping push listener")
		old.Close()
	}
}

// Devices returns the managed devices ordered by stable id.
func (s *Session) Devices() []device.Device {
	s.writer.Lock()
	defer s.writer.Unlock()
	return s.arena.snapshot()
}

// Device looks up a managed device by stable id.
func (s *Session) Device(id string) (device.Device, bool) {
	s.writer.Lock()
	defer s.writer.Unlock()
	d, ok := s.arena.devices[id]
	return d, ok
}

// Close stops polling and the push listener. In-flight requests finish or
// time out on their own.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		push := s.push
		s.mu.Unlock()
		if push != nil {
			push.Close()
		}
		s.client.Close()
	})
}
