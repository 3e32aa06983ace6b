package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-notify-nosql/internal/domain"
	"github.com/go-notify-nosql/internal/pkg/id"
)

type Service interface {
	List(ctx context.Context, userID string, unreadOnly bool, p domain.Pagination) (*domain.NotificationList, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	MarkAsClicked(ctx context.Context, notificationID string) error
	BulkUpdateStatus(ctx context.Context, userID string, req domain.BulkActionRequest) (int, error)
	Send(ctx context.Context, req domain.SendNotificationRequest) (*domain.Notification, error)
	GetPreferences(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, req domain.UpdatePreferencesRequest) (*domain.NotificationPreferences, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	CountByUser(ctx context.Context, userID string) (total, unread int, err error)
	SetRead(ctx context.Context, notificationID string, read bool) error
	MarkClicked(ctx context.Context, notificationID string) error
}

type preferenceStore interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
	Upsert(ctx context.Context, p *domain.NotificationPreferences) error
}

type feedPublisher interface {
	Publish(ctx context.Context, notificationID string) error
}

type service struct {
	repo  notificationStore
	prefs preferenceStore
	feed  feedPublisher
}

func NewService(repo notificationStore, prefs preferenceStore, feed feedPublisher) Service {
	return &service{repo: repo, prefs: prefs, feed: feed}
}

func (s *service) List(ctx context.Context, userID string, unreadOnly bool, p domain.Pagination) (*domain.NotificationList, error) {
	items, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	total, unread, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	start := (p.Page - 1) * p.Limit
	if start > len(items) {
		start = len(items)
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	page := items[start:end]
	if page == nil {
		page = []domain.Notification{}
	}

	p.Total = total
	p.TotalPages = (total + p.Limit - 1) / p.Limit

	return &domain.NotificationList{
		Notifications: page,
		Pagination:    p,
		UnreadCount:   unread,
	}, nil
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if err := s.repo.SetRead(ctx, notificationID, true); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, notificationID)
}

func (s *service) MarkAsClicked(ctx context.Context, notificationID string) error {
	if _, err := s.repo.Get(ctx, notificationID); err != nil {
		return err
	}
	return s.repo.MarkClicked(ctx, notificationID)
}

func (s *service) BulkUpdateStatus(ctx context.Context, userID string, req domain.BulkActionRequest) (int, error) {
	var read bool
	switch req.Action {
	case domain.ActionMarkAllRead:
		read = true
	case domain.ActionMarkAllUnread:
		read = false
	default:
		return 0, fmt.Errorf("invalid action %q: %w", req.Action, domain.ErrBadRequest)
	}

	items, err := s.repo.ListByUser(ctx, userID, false)
	if err != nil {
		return 0, err
	}

	// Only the caller's own notifications qualify; ids belonging to anyone
	// else are silently ignored.
	owned := make(map[string]bool, len(items))
	for _, n := range items {
		owned[n.NotificationID] = true
	}

	targets := req.NotificationIDs
	if len(targets) == 0 {
		targets = make([]string, 0, len(items))
		for _, n := range items {
			targets = append(targets, n.NotificationID)
		}
	}

	updated := 0
	for _, nid := range targets {
		if !owned[nid] {
			continue
		}
		if err := s.repo.SetRead(ctx, nid, read); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// Send persists the notification and announces it on the change feed; the
// listener picks the event up and fans out to the delivery channels.
func (s *service) Send(ctx context.Context, req domain.SendNotificationRequest) (*domain.Notification, error) {
	if !domain.ValidNotificationType(req.Type) {
		return nil, fmt.Errorf("invalid notification type %q: %w", req.Type, domain.ErrBadRequest)
	}

	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         req.UserID,
		Title:          req.Title,
		Message:        req.Message,
		Type:           req.Type,
		Data:           req.Data,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}

	created, err := s.repo.Get(ctx, n.NotificationID)
	if err != nil {
		return nil, err
	}

	if err := s.feed.Publish(ctx, created.NotificationID); err != nil {
		// Delivery is best-effort; the notification row itself is durable.
		log.Printf("publish notification event %s: %v", created.NotificationID, err)
	}
	return created, nil
}

func (s *service) GetPreferences(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	p, err := s.prefs.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UpdatePreferences(ctx context.Context, userID string, req domain.UpdatePreferencesRequest) (*domain.NotificationPreferences, error) {
	now := time.Now().UTC()
	p := domain.DefaultPreferences(userID)
	p.CreatedAt = now

	existing, err := s.prefs.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		p = existing
	}

	if req.PushEnabled != nil {
		p.PushEnabled = *req.PushEnabled
	}
	if req.EmailEnabled != nil {
		p.EmailEnabled = *req.EmailEnabled
	}
	if req.SMSEnabled != nil {
		p.SMSEnabled = *req.SMSEnabled
	}
	p.UpdatedAt = now

	if err := s.prefs.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
