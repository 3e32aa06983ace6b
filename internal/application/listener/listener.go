package listener

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/go-notify-nosql/internal/domain"
)

// State is the listener's lifecycle state.
type State int

const (
	StateStopped State = iota
	StateConnecting
	StateListening
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	default:
		return "stopped"
	}
}

// Feed is the change-notification stream on the persistence layer.
type Feed interface {
	Subscribe(ctx context.Context) error
	Events() <-chan string
	Close() error
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool
}

// Listener holds the single change-feed subscription for the process. It is
// constructed once at startup and shared by reference; the state field is
// the start-once guard (Stopped → Connecting → Listening).
type Listener struct {
	feed     Feed
	store    notificationStore
	registry dispatcher

	mu     sync.Mutex
	state  State
	gen    int
	cancel context.CancelFunc
}

func New(feed Feed, store notificationStore, registry dispatcher) *Listener {
	return &Listener{feed: feed, store: store, registry: registry}
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start opens the persistent subscription. Calling Start while the listener
// is connecting or listening is a no-op. A connect failure leaves the
// listener stopped; restarting is an operational action, not automatic.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.state != StateStopped {
		l.mu.Unlock()
		log.Printf("notification listener already %s, ignoring start", l.state)
		return nil
	}
	l.state = StateConnecting
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.mu.Unlock()

	if err := l.feed.Subscribe(ctx); err != nil {
		log.Printf("notification listener failed to connect: %v", err)
		l.setState(StateStopped)
		cancel()
		return err
	}
	l.setState(StateListening)

	go l.run(ctx, gen)
	log.Println("notification listener started")
	return nil
}

// Stop closes the subscription gracefully. Safe to call when never started.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.state == StateStopped {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	l.state = StateStopped
	l.mu.Unlock()

	if err := l.feed.Close(); err != nil {
		log.Printf("notification listener close: %v", err)
	}
	if cancel != nil {
		cancel()
	}
	log.Println("notification listener stopped")
}

func (l *Listener) run(ctx context.Context, gen int) {
	// Each event gets its own goroutine so a slow store fetch or dispatch
	// never blocks the subscription from receiving further events.
	for payload := range l.feed.Events() {
		go l.handleEvent(ctx, payload)
	}

	// Only the active run may mark the listener stopped; a drained loop
	// from a previous subscription must not clobber a restart.
	l.mu.Lock()
	if l.gen == gen {
		l.state = StateStopped
	}
	l.mu.Unlock()
}

// handleEvent processes one change event. Every failure here is isolated to
// this event: logged and skipped, never allowed to break the loop.
func (l *Listener) handleEvent(ctx context.Context, payload string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("listener: panic handling event %q: %v", payload, rec)
		}
	}()

	var ev struct {
		NotificationID string `json:"notification_id"`
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.NotificationID == "" {
		log.Printf("listener: malformed event payload %q", payload)
		return
	}

	n, err := l.store.Get(ctx, ev.NotificationID)
	if err != nil {
		// Usually a race with the writer; the row may not be visible yet.
		log.Printf("listener: fetch notification %s: %v", ev.NotificationID, err)
		return
	}

	l.registry.Dispatch(ctx, n.UserID, n.Title, n.Message, n.Type, n.Data)
}

func (l *Listener) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}
