package listener

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-notify-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

// fakeFeed mirrors the redis feed's contract: Subscribe opens a fresh
// events channel, Close closes the current one.
type fakeFeed struct {
	mu         sync.Mutex
	events     chan string
	subscribes int
	subErr     error
	closed     bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{events: make(chan string, 16)}
}

func (f *fakeFeed) Subscribe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.subErr != nil {
		return f.subErr
	}
	f.events = make(chan string, 16)
	f.closed = false
	return nil
}

func (f *fakeFeed) Events() <-chan string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeFeed) send(payload string) {
	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	ch <- payload
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingDispatcher struct {
	mu       sync.Mutex
	calls    []string
	expected int
	done     chan struct{}
}

func newRecordingDispatcher(expected int) *recordingDispatcher {
	d := &recordingDispatcher{done: make(chan struct{})}
	if expected == 0 {
		close(d.done)
	}
	d.expected = expected
	return d
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, userID)
	if len(d.calls) == d.expected {
		close(d.done)
	}
	return true
}

func (d *recordingDispatcher) users() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

// --- tests ---

func TestListener_DeliversEachEvent(t *testing.T) {
	feed := newFakeFeed()
	store := &mockStore{}
	store.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1"}, nil)
	store.On("Get", mock.Anything, "n2").Return(&domain.Notification{NotificationID: "n2", UserID: "u2"}, nil)
	disp := newRecordingDispatcher(2)

	l := New(feed, store, disp)
	require.NoError(t, l.Start())
	assert.Equal(t, StateListening, l.State())

	feed.send(`{"notification_id":"n1"}`)
	feed.send(`{"notification_id":"n2"}`)
	waitFor(t, disp.done)

	assert.ElementsMatch(t, []string{"u1", "u2"}, disp.users())
	l.Stop()
	assert.Equal(t, StateStopped, l.State())
}

func TestListener_MalformedPayloadSkipped(t *testing.T) {
	feed := newFakeFeed()
	store := &mockStore{}
	store.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1"}, nil)
	disp := newRecordingDispatcher(1)

	l := New(feed, store, disp)
	require.NoError(t, l.Start())

	feed.send(`not json at all`)
	feed.send(`{"notification_id":""}`)
	feed.send(`{"notification_id":"n1"}`)
	waitFor(t, disp.done)

	assert.Equal(t, []string{"u1"}, disp.users())
	store.AssertNumberOfCalls(t, "Get", 1)
	l.Stop()
}

func TestListener_MissingNotificationSkipped(t *testing.T) {
	feed := newFakeFeed()
	store := &mockStore{}
	store.On("Get", mock.Anything, "gone").Return(nil, domain.ErrNotFound)
	store.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1"}, nil)
	disp := newRecordingDispatcher(1)

	l := New(feed, store, disp)
	require.NoError(t, l.Start())

	feed.send(`{"notification_id":"gone"}`)
	feed.send(`{"notification_id":"n1"}`)
	waitFor(t, disp.done)

	assert.Equal(t, []string{"u1"}, disp.users())
	l.Stop()
}

func TestListener_DoubleStartIsNoOp(t *testing.T) {
	feed := newFakeFeed()
	l := New(feed, &mockStore{}, newRecordingDispatcher(0))

	require.NoError(t, l.Start())
	require.NoError(t, l.Start())

	feed.mu.Lock()
	subs := feed.subscribes
	feed.mu.Unlock()
	assert.Equal(t, 1, subs)
	l.Stop()
}

func TestListener_SubscribeFailureLeavesStopped(t *testing.T) {
	feed := newFakeFeed()
	feed.subErr = assert.AnError

	l := New(feed, &mockStore{}, newRecordingDispatcher(0))

	require.Error(t, l.Start())
	assert.Equal(t, StateStopped, l.State())
}

func TestListener_StopWithoutStart(t *testing.T) {
	l := New(newFakeFeed(), &mockStore{}, newRecordingDispatcher(0))
	l.Stop()
	assert.Equal(t, StateStopped, l.State())
}

func TestListener_RestartAfterStop(t *testing.T) {
	feed := newFakeFeed()
	l := New(feed, &mockStore{}, newRecordingDispatcher(0))

	require.NoError(t, l.Start())
	l.Stop()

	// Subscribe opens a fresh channel, so the same listener can come back
	// after an outage.
	require.NoError(t, l.Start())
	assert.Equal(t, StateListening, l.State())
	l.Stop()
}
