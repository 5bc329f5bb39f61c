package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/internal/store"
)

// ErrGaveUp is returned by Run once the reconnect ceiling is reached.
var ErrGaveUp = errors.New("feed: reconnect attempts exhausted")

// ConnState is the connection state of a Listener.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnected
	StateReconnecting
	StateGaveUp
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "live"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateGaveUp:
		return "offline"
	default:
		return "unknown"
	}
}

// StatusMsg is a tea.Msg describing a connection state change.
type StatusMsg struct {
	Source  string
	State   ConnState
	Err     error
	Attempt int
	RetryIn time.Duration
}

// ArrivalMsg is a tea.Msg carrying a newly received notification. It is
// sent after the record was handed to the store; PersistErr is set when
// that write failed.
type ArrivalMsg struct {
	Notification model.Notification
	PersistErr   error
}

// storeTimeout bounds a single store write from the listener.
const storeTimeout = 5 * time.Second

// eventBuffer is the capacity of the events channel.
const eventBuffer = 64

// stableAfter is how long a session must last, without delivering a
// payload, before it resets the failure count.
const stableAfter = 10 * time.Second

// Listener owns a push transport connection. It decodes every inbound
// payload into a notification, persists it and publishes it, in arrival
// order, on its events channel. It reconnects with backoff until the
// retry ceiling is reached. A Listener is started at most once.
type Listener struct {
	src        Source
	store      store.Store
	ids        *IDGenerator
	backoff    Backoff
	maxRetries int
	now        func() time.Time
	events     chan tea.Msg

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

// Option configures a Listener.
type Option func(*Listener)

// WithBackoff overrides the reconnect backoff.
func WithBackoff(b Backoff) Option {
	return func(l *Listener) { l.backoff = b }
}

// WithMaxRetries sets the consecutive failure ceiling; 0 means unlimited.
func WithMaxRetries(n int) Option {
	return func(l *Listener) { l.maxRetries = n }
}

// WithClock overrides the receipt-time clock.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// WithIDGenerator overrides the ID generator.
func WithIDGenerator(g *IDGenerator) Option {
	return func(l *Listener) { l.ids = g }
}

// NewListener creates a Listener reading from src and writing to s.
func NewListener(src Source, s store.Store, opts ...Option) *Listener {
	l := &Listener{
		src:        src,
		store:      s,
		ids:        NewIDGenerator(),
		backoff:    DefaultBackoff(),
		maxRetries: 10,
		now:        time.Now,
		events:     make(chan tea.Msg, eventBuffer),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Events returns the channel of ArrivalMsg and StatusMsg values.
func (l *Listener) Events() <-chan tea.Msg {
	return l.events
}

// SourceName returns the name of the underlying transport.
func (l *Listener) SourceName() string {
	return l.src.Name()
}

// Start runs the listener in the background and returns a tea.Cmd that
// waits for its first event.
func (l *Listener) Start() tea.Cmd {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.started = true
	l.mu.Unlock()

	go func() {
		defer close(l.events)
		if err := l.Run(ctx); err != nil {
			log.Printf("%s feed stopped: %v", l.src.Name(), err)
		}
	}()

	return l.WaitForEvent()
}

// Stop cancels the background run and closes the connection.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
}

// WaitForEvent returns a tea.Cmd that waits for the next listener event.
// It should be re-issued after each event to keep listening.
func (l *Listener) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-l.events
		if !ok {
			return nil
		}
		return msg
	}
}

// Run connects, reads and reconnects until ctx is cancelled (returns nil)
// or the retry ceiling is reached (returns ErrGaveUp).
func (l *Listener) Run(ctx context.Context) error {
	name := l.src.Name()
	failures := 0

	l.publish(ctx, StatusMsg{Source: name, State: StateConnecting})

	for {
		conn, err := l.src.Connect(ctx)
		if err == nil {
			log.Printf("%s feed connected", name)
			l.publish(ctx, StatusMsg{Source: name, State: StateConnected})

			connectedAt := time.Now()
			var delivered int
			delivered, err = l.consume(ctx, conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				return nil
			}
			// A session that drops before it is useful counts as a failure.
			if delivered > 0 || time.Since(connectedAt) >= stableAfter {
				failures = 0
			}
			log.Printf("%s feed disconnected: %v", name, err)
			l.publish(ctx, StatusMsg{Source: name, State: StateDisconnected, Err: err})
		} else {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("%s feed connect failed: %v", name, err)
		}

		failures++
		if l.maxRetries > 0 && failures >= l.maxRetries {
			l.publish(ctx, StatusMsg{
				Source:  name,
				State:   StateGaveUp,
				Err:     err,
				Attempt: failures,
			})
			return fmt.Errorf("%w after %d attempts", ErrGaveUp, failures)
		}

		delay := l.backoff.Delay(failures - 1)
		l.publish(ctx, StatusMsg{
			Source:  name,
			State:   StateReconnecting,
			Err:     err,
			Attempt: failures,
			RetryIn: delay,
		})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// consume reads payloads until the connection fails or ctx ends. It
// returns the number of payloads read.
func (l *Listener) consume(ctx context.Context, conn Conn) (int, error) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	n := 0
	for {
		raw, err := conn.Read(ctx)
		if err != nil {
			return n, err
		}
		n++
		l.handle(ctx, raw)
	}
}

// handle turns one payload into a stored, published notification.
// Malformed payloads are logged and dropped.
func (l *Listener) handle(ctx context.Context, raw []byte) {
	p, err := Decode(raw)
	if err != nil {
		log.Printf("%s feed: dropping payload: %v", l.src.Name(), err)
		return
	}

	n := model.Notification{
		ID:        l.ids.Next(),
		Message:   p.Message,
		Kind:      p.Kind,
		Source:    l.src.Name(),
		CreatedAt: l.now().UTC(),
		IsRead:    false,
	}

	putCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	persistErr := l.store.Put(putCtx, n)
	cancel()
	if persistErr != nil {
		log.Printf("persisting notification %s: %v", n.ID, persistErr)
	}

	l.publish(ctx, ArrivalMsg{Notification: n, PersistErr: persistErr})
}

// publish delivers msg unless ctx ends first. Arrivals are never dropped
// while the listener runs.
func (l *Listener) publish(ctx context.Context, msg tea.Msg) {
	select {
	case l.events <- msg:
	case <-ctx.Done():
	}
}
