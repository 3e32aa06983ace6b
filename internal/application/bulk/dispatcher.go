package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-notify-nosql/internal/domain"
	"github.com/go-notify-nosql/internal/pkg/id"
)

const (
	batchSize  = 50
	batchPause = 100 * time.Millisecond
)

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type dispatcher interface {
	Dispatch(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool
}

type userDirectory interface {
	ListIDsByStatus(ctx context.Context, status string) ([]string, error)
}

type deviceRegistry interface {
	UserIDsByPlatform(ctx context.Context, platform string) (map[string]struct{}, error)
	AllActiveUserIDs(ctx context.Context) (map[string]struct{}, error)
}

// Dispatcher fans a single notification out to a resolved audience. Unlike
// single sends it does not go through the change feed: each recipient's row
// is written and delivered directly, in batches, to keep a campaign for
// thousands of users from hammering the providers all at once.
type Dispatcher struct {
	repo     notificationStore
	registry dispatcher
	users    userDirectory
	devices  deviceRegistry
}

func NewDispatcher(repo notificationStore, registry dispatcher, users userDirectory, devices deviceRegistry) *Dispatcher {
	return &Dispatcher{repo: repo, registry: registry, users: users, devices: devices}
}

func (d *Dispatcher) SendBulk(ctx context.Context, req domain.SendBulkNotificationRequest) (*domain.BulkNotificationResult, error) {
	if !domain.ValidNotificationType(req.Type) {
		return nil, fmt.Errorf("invalid notification type %q: %w", req.Type, domain.ErrBadRequest)
	}

	audience, err := d.resolveAudience(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &domain.BulkNotificationResult{
		NotificationIDs: []string{},
		Errors:          []domain.BulkError{},
	}
	if len(audience) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	for start := 0; start < len(audience); start += batchSize {
		end := start + batchSize
		if end > len(audience) {
			end = len(audience)
		}

		var wg sync.WaitGroup
		for _, userID := range audience[start:end] {
			wg.Add(1)
			go func(uid string) {
				defer wg.Done()
				nid, err := d.deliver(ctx, uid, req)

				mu.Lock()
				defer mu.Unlock()
				if nid != "" {
					result.NotificationIDs = append(result.NotificationIDs, nid)
				}
				if err != nil {
					result.FailedCount++
					result.Errors = append(result.Errors, domain.BulkError{UserID: uid, Error: err.Error()})
					return
				}
				result.SentCount++
			}(userID)
		}
		wg.Wait()

		if end < len(audience) {
			time.Sleep(batchPause)
		}
	}
	return result, nil
}

// deliver writes the recipient's notification row and pushes it through the
// channels. The id is returned even when delivery fails, since the row
// exists either way; a recipient counts as failed when no channel reached
// them.
func (d *Dispatcher) deliver(ctx context.Context, userID string, req domain.SendBulkNotificationRequest) (string, error) {
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Title:          req.Title,
		Message:        req.Message,
		Type:           req.Type,
		Data:           req.Data,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := d.repo.Put(ctx, n); err != nil {
		return "", err
	}

	if !d.registry.Dispatch(ctx, userID, req.Title, req.Message, req.Type, req.Data) {
		return n.NotificationID, fmt.Errorf("delivery failed on all channels")
	}
	return n.NotificationID, nil
}

// resolveAudience turns the request into a deduplicated recipient list. An
// explicit user_ids list wins; otherwise filters are intersected, defaulting
// to every active user.
func (d *Dispatcher) resolveAudience(ctx context.Context, req domain.SendBulkNotificationRequest) ([]string, error) {
	if len(req.UserIDs) > 0 {
		return dedupe(req.UserIDs), nil
	}

	filters := req.Filters
	if filters == nil {
		filters = &domain.BulkFilters{}
	}

	status := filters.Status
	if status == "" {
		status = domain.StatusActive
	}
	audience, err := d.users.ListIDsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("resolve audience by status: %w", err)
	}

	if filters.DeviceType != "" {
		byPlatform, err := d.devices.UserIDsByPlatform(ctx, filters.DeviceType)
		if err != nil {
			return nil, fmt.Errorf("resolve audience by platform: %w", err)
		}
		audience = filterSet(audience, byPlatform, true)
	}

	if filters.HasDeviceToken != nil {
		withToken, err := d.devices.AllActiveUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve audience by device token: %w", err)
		}
		audience = filterSet(audience, withToken, *filters.HasDeviceToken)
	}

	return dedupe(audience), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, uid := range ids {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		out = append(out, uid)
	}
	return out
}

// filterSet keeps the ids present in set (keep=true) or absent from it
// (keep=false), preserving order.
func filterSet(ids []string, set map[string]struct{}, keep bool) []string {
	out := make([]string, 0, len(ids))
	for _, uid := range ids {
		if _, ok := set[uid]; ok == keep {
			out = append(out, uid)
		}
	}
	return out
}
