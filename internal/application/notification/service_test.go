package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-notify-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if ns, _ := args.Get(0).([]domain.Notification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) CountByUser(ctx context.Context, userID string) (int, int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Int(1), args.Error(2)
}
func (m *mockNotificationStore) SetRead(ctx context.Context, notificationID string, read bool) error {
	return m.Called(ctx, notificationID, read).Error(0)
}
func (m *mockNotificationStore) MarkClicked(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}

type mockPreferenceStore struct{ mock.Mock }

func (m *mockPreferenceStore) Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.NotificationPreferences); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPreferenceStore) Upsert(ctx context.Context, p *domain.NotificationPreferences) error {
	return m.Called(ctx, p).Error(0)
}

type mockFeed struct{ mock.Mock }

func (m *mockFeed) Publish(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}

func newSvc(repo *mockNotificationStore, prefs *mockPreferenceStore, feed *mockFeed) Service {
	return NewService(repo, prefs, feed)
}

func notif(id, userID string) *domain.Notification {
	return &domain.Notification{
		NotificationID: id,
		UserID:         userID,
		Title:          "hi",
		Message:        "body",
		Type:           domain.TypePromotional,
		CreatedAt:      time.Now().UTC(),
	}
}

// --- List tests ---

func TestList_PagesAndCounts(t *testing.T) {
	repo := &mockNotificationStore{}
	items := []domain.Notification{*notif("n1", "u1"), *notif("n2", "u1"), *notif("n3", "u1")}
	repo.On("ListByUser", mock.Anything, "u1", false).Return(items, nil)
	repo.On("CountByUser", mock.Anything, "u1").Return(3, 2, nil)

	list, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		List(context.Background(), "u1", false, domain.Pagination{Page: 1, Limit: 2})

	require.NoError(t, err)
	assert.Len(t, list.Notifications, 2)
	assert.Equal(t, 3, list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.TotalPages)
	assert.Equal(t, 2, list.UnreadCount)
}

func TestList_PageBeyondEndIsEmpty(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("ListByUser", mock.Anything, "u1", false).Return([]domain.Notification{*notif("n1", "u1")}, nil)
	repo.On("CountByUser", mock.Anything, "u1").Return(1, 0, nil)

	list, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		List(context.Background(), "u1", false, domain.Pagination{Page: 5, Limit: 20})

	require.NoError(t, err)
	assert.NotNil(t, list.Notifications)
	assert.Empty(t, list.Notifications)
}

func TestList_UnreadOnlyStillReportsFullTotal(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("ListByUser", mock.Anything, "u1", true).Return([]domain.Notification{*notif("n2", "u1")}, nil)
	repo.On("CountByUser", mock.Anything, "u1").Return(5, 1, nil)

	list, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		List(context.Background(), "u1", true, domain.Pagination{Page: 1, Limit: 20})

	require.NoError(t, err)
	assert.Len(t, list.Notifications, 1)
	assert.Equal(t, 5, list.Pagination.Total)
	assert.Equal(t, 1, list.UnreadCount)
}

// --- MarkAsRead tests ---

func TestMarkAsRead_OwnerMismatchForbidden(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Get", mock.Anything, "n1").Return(notif("n1", "someone-else"), nil)

	_, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		MarkAsRead(context.Background(), "n1", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	repo.AssertNotCalled(t, "SetRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAsRead_NotFound(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	_, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		MarkAsRead(context.Background(), "missing", "u1")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	repo := &mockNotificationStore{}
	already := notif("n1", "u1")
	already.Read = true
	repo.On("Get", mock.Anything, "n1").Return(already, nil)
	repo.On("SetRead", mock.Anything, "n1", true).Return(nil)

	n, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		MarkAsRead(context.Background(), "n1", "u1")

	require.NoError(t, err)
	assert.True(t, n.Read)
}

// --- BulkUpdateStatus tests ---

func TestBulkUpdateStatus_InvalidAction(t *testing.T) {
	_, err := newSvc(&mockNotificationStore{}, &mockPreferenceStore{}, &mockFeed{}).
		BulkUpdateStatus(context.Background(), "u1", domain.BulkActionRequest{Action: "delete_all"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestBulkUpdateStatus_MarkAllRead(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("ListByUser", mock.Anything, "u1", false).
		Return([]domain.Notification{*notif("n1", "u1"), *notif("n2", "u1")}, nil)
	repo.On("SetRead", mock.Anything, mock.Anything, true).Return(nil)

	updated, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		BulkUpdateStatus(context.Background(), "u1", domain.BulkActionRequest{Action: domain.ActionMarkAllRead})

	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	repo.AssertNumberOfCalls(t, "SetRead", 2)
}

func TestBulkUpdateStatus_ScopedToOwnNotifications(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("ListByUser", mock.Anything, "u1", false).
		Return([]domain.Notification{*notif("n1", "u1")}, nil)
	repo.On("SetRead", mock.Anything, "n1", true).Return(nil)

	updated, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).
		BulkUpdateStatus(context.Background(), "u1", domain.BulkActionRequest{
			Action:          domain.ActionMarkAllRead,
			NotificationIDs: []string{"n1", "someone-elses"},
		})

	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	repo.AssertNotCalled(t, "SetRead", mock.Anything, "someone-elses", mock.Anything)
}

// --- Send tests ---

func TestSend_PersistsThenPublishes(t *testing.T) {
	repo := &mockNotificationStore{}
	var createdID string
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) {
			createdID = args.Get(1).(*domain.Notification).NotificationID
		}).Return(nil)
	repo.On("Get", mock.Anything, mock.Anything).Return(notif("n1", "u1"), nil)

	feed := &mockFeed{}
	feed.On("Publish", mock.Anything, "n1").Return(nil)

	n, err := newSvc(repo, &mockPreferenceStore{}, feed).Send(context.Background(), domain.SendNotificationRequest{
		UserID: "u1", Title: "hi", Message: "body", Type: domain.TypeMoneySuccess,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, createdID)
	assert.Equal(t, "n1", n.NotificationID)
	feed.AssertCalled(t, "Publish", mock.Anything, "n1")
}

func TestSend_InvalidType(t *testing.T) {
	repo := &mockNotificationStore{}

	_, err := newSvc(repo, &mockPreferenceStore{}, &mockFeed{}).Send(context.Background(), domain.SendNotificationRequest{
		UserID: "u1", Title: "hi", Message: "body", Type: "spammy",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSend_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	repo.On("Get", mock.Anything, mock.Anything).Return(notif("n1", "u1"), nil)

	feed := &mockFeed{}
	feed.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

	n, err := newSvc(repo, &mockPreferenceStore{}, feed).Send(context.Background(), domain.SendNotificationRequest{
		UserID: "u1", Title: "hi", Message: "body", Type: domain.TypeMoneySuccess,
	})

	require.NoError(t, err)
	assert.Equal(t, "n1", n.NotificationID)
}

// --- Preferences tests ---

func TestGetPreferences_MissingRowDefaultsToAllEnabled(t *testing.T) {
	prefs := &mockPreferenceStore{}
	prefs.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	p, err := newSvc(&mockNotificationStore{}, prefs, &mockFeed{}).GetPreferences(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, p.PushEnabled)
	assert.True(t, p.EmailEnabled)
	assert.True(t, p.SMSEnabled)
}

func TestUpdatePreferences_PartialUpdateKeepsOtherFlags(t *testing.T) {
	prefs := &mockPreferenceStore{}
	existing := domain.DefaultPreferences("u1")
	prefs.On("Get", mock.Anything, "u1").Return(existing, nil)

	var stored *domain.NotificationPreferences
	prefs.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.NotificationPreferences")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.NotificationPreferences)
		}).Return(nil)

	off := false
	p, err := newSvc(&mockNotificationStore{}, prefs, &mockFeed{}).
		UpdatePreferences(context.Background(), "u1", domain.UpdatePreferencesRequest{PushEnabled: &off})

	require.NoError(t, err)
	assert.False(t, p.PushEnabled)
	assert.True(t, p.EmailEnabled)
	assert.True(t, p.SMSEnabled)
	require.NotNil(t, stored)
	assert.False(t, stored.PushEnabled)
}

func TestUpdatePreferences_CreatesRowWhenMissing(t *testing.T) {
	prefs := &mockPreferenceStore{}
	prefs.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	prefs.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	off := false
	p, err := newSvc(&mockNotificationStore{}, prefs, &mockFeed{}).
		UpdatePreferences(context.Background(), "u1", domain.UpdatePreferencesRequest{SMSEnabled: &off})

	require.NoError(t, err)
	assert.True(t, p.PushEnabled)
	assert.False(t, p.SMSEnabled)
	assert.False(t, p.CreatedAt.IsZero())
}
