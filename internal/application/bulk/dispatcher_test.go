package bulk

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-notify-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotificationStore struct {
	mock.Mock
	mu      sync.Mutex
	failFor map[string]bool
}

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	fail := m.failFor[n.UserID]
	m.mu.Unlock()
	m.Called(ctx, n)
	if fail {
		return errors.New("conditional check failed")
	}
	return nil
}

type mockRegistry struct {
	mock.Mock
	mu    sync.Mutex
	users []string
}

func (m *mockRegistry) Dispatch(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool {
	m.mu.Lock()
	m.users = append(m.users, userID)
	m.mu.Unlock()
	args := m.Called(ctx, userID, title, message, notifType, data)
	return args.Bool(0)
}

type mockUserDirectory struct{ mock.Mock }

func (m *mockUserDirectory) ListIDsByStatus(ctx context.Context, status string) ([]string, error) {
	args := m.Called(ctx, status)
	if ids, _ := args.Get(0).([]string); ids != nil {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeviceRegistry struct{ mock.Mock }

func (m *mockDeviceRegistry) UserIDsByPlatform(ctx context.Context, platform string) (map[string]struct{}, error) {
	args := m.Called(ctx, platform)
	if set, _ := args.Get(0).(map[string]struct{}); set != nil {
		return set, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceRegistry) AllActiveUserIDs(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	if set, _ := args.Get(0).(map[string]struct{}); set != nil {
		return set, args.Error(1)
	}
	return nil, args.Error(1)
}

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func bulkReq(userIDs ...string) domain.SendBulkNotificationRequest {
	return domain.SendBulkNotificationRequest{
		Title:   "hi",
		Message: "body",
		Type:    domain.TypePromotional,
		UserIDs: userIDs,
	}
}

// --- SendBulk tests ---

func TestSendBulk_ExplicitUsers_CountsSuccessesAndFailures(t *testing.T) {
	repo := &mockNotificationStore{failFor: map[string]bool{"u2": true}}
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	reg := &mockRegistry{}
	reg.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	d := NewDispatcher(repo, reg, &mockUserDirectory{}, &mockDeviceRegistry{})
	result, err := d.SendBulk(context.Background(), bulkReq("u1", "u2", "u3"))

	require.NoError(t, err)
	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Len(t, result.NotificationIDs, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "u2", result.Errors[0].UserID)
}

func TestSendBulk_DeduplicatesExplicitUsers(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	reg := &mockRegistry{}
	reg.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	d := NewDispatcher(repo, reg, &mockUserDirectory{}, &mockDeviceRegistry{})
	result, err := d.SendBulk(context.Background(), bulkReq("u1", "u1", "u2", "u1"))

	require.NoError(t, err)
	assert.Equal(t, 2, result.SentCount)
	assert.Zero(t, result.FailedCount)
	assert.ElementsMatch(t, []string{"u1", "u2"}, reg.users)
}

func TestSendBulk_InvalidType(t *testing.T) {
	d := NewDispatcher(&mockNotificationStore{}, &mockRegistry{}, &mockUserDirectory{}, &mockDeviceRegistry{})

	req := bulkReq("u1")
	req.Type = "spam"
	_, err := d.SendBulk(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSendBulk_EmptyAudience_ZeroResult(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("ListIDsByStatus", mock.Anything, domain.StatusActive).Return([]string{}, nil)
	reg := &mockRegistry{}

	d := NewDispatcher(&mockNotificationStore{}, reg, users, &mockDeviceRegistry{})
	result, err := d.SendBulk(context.Background(), domain.SendBulkNotificationRequest{
		Title: "hi", Message: "body", Type: domain.TypePromotional,
	})

	require.NoError(t, err)
	assert.Zero(t, result.SentCount)
	assert.Zero(t, result.FailedCount)
	assert.NotNil(t, result.NotificationIDs)
	assert.NotNil(t, result.Errors)
	reg.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendBulk_FilterStatusDefaultsToActive(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("ListIDsByStatus", mock.Anything, domain.StatusActive).Return([]string{"u1"}, nil)
	repo := &mockNotificationStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	reg := &mockRegistry{}
	reg.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	d := NewDispatcher(repo, reg, users, &mockDeviceRegistry{})
	result, err := d.SendBulk(context.Background(), domain.SendBulkNotificationRequest{
		Title: "hi", Message: "body", Type: domain.TypePromotional,
		Filters: &domain.BulkFilters{},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	users.AssertCalled(t, "ListIDsByStatus", mock.Anything, domain.StatusActive)
}

func TestSendBulk_DeviceTypeFilterIntersects(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("ListIDsByStatus", mock.Anything, domain.StatusActive).Return([]string{"u1", "u2", "u3"}, nil)
	devices := &mockDeviceRegistry{}
	devices.On("UserIDsByPlatform", mock.Anything, domain.PlatformIOS).Return(set("u2", "u9"), nil)

	repo := &mockNotificationStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	reg := &mockRegistry{}
	reg.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	d := NewDispatcher(repo, reg, users, devices)
	result, err := d.SendBulk(context.Background(), domain.SendBulkNotificationRequest{
		Title: "hi", Message: "body", Type: domain.TypePromotional,
		Filters: &domain.BulkFilters{DeviceType: domain.PlatformIOS},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, []string{"u2"}, reg.users)
}

func TestSendBulk_HasDeviceTokenFalse_Subtracts(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("ListIDsByStatus", mock.Anything, domain.StatusActive).Return([]string{"u1", "u2"}, nil)
	devices := &mockDeviceRegistry{}
	devices.On("AllActiveUserIDs", mock.Anything).Return(set("u1"), nil)

	repo := &mockNotificationStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	reg := &mockRegistry{}
	reg.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	hasToken := false
	d := NewDispatcher(repo, reg, users, devices)
	result, err := d.SendBulk(context.Background(), domain.SendBulkNotificationRequest{
		Title: "hi", Message: "body", Type: domain.TypePromotional,
		Filters: &domain.BulkFilters{HasDeviceToken: &hasToken},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, []string{"u2"}, reg.users)
}

func TestSendBulk_AudienceResolutionErrorAborts(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("ListIDsByStatus", mock.Anything, domain.StatusBanned).Return(nil, assert.AnError)

	d := NewDispatcher(&mockNotificationStore{}, &mockRegistry{}, users, &mockDeviceRegistry{})
	_, err := d.SendBulk(context.Background(), domain.SendBulkNotificationRequest{
		Title: "hi", Message: "body", Type: domain.TypePromotional,
		Filters: &domain.BulkFilters{Status: domain.StatusBanned},
	})

	require.Error(t, err)
}

func TestSendBulk_ProviderFailureForOneUser(t *testing.T) {
	repo := &mockNotificationStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	reg := &mockRegistry{}
	reg.On("Dispatch", mock.Anything, "u2", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false)
	reg.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true)

	d := NewDispatcher(repo, reg, &mockUserDirectory{}, &mockDeviceRegistry{})
	result, err := d.SendBulk(context.Background(), bulkReq("u1", "u2", "u3"))

	require.NoError(t, err)
	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	// The row was written for every recipient, delivered or not.
	assert.Len(t, result.NotificationIDs, 3)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "u2", result.Errors[0].UserID)
}
