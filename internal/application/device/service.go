package device

import (
	"context"
	"fmt"
	"time"

	"github.com/go-notify-nosql/internal/domain"
)

type Service interface {
	Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.UserDevice, error)
	Remove(ctx context.Context, userID, deviceToken string) error
}

type deviceStore interface {
	Upsert(ctx context.Context, d *domain.UserDevice) error
	Deactivate(ctx context.Context, userID, deviceToken string) error
}

type service struct {
	repo deviceStore
}

func NewService(repo deviceStore) Service {
	return &service{repo: repo}
}

// Register upserts the token keyed by the token itself, so re-registering a
// token from another account moves it rather than duplicating it.
func (s *service) Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.UserDevice, error) {
	platform := req.Platform
	if platform == "" {
		platform = domain.PlatformAndroid
	}
	if !domain.ValidPlatform(platform) {
		return nil, fmt.Errorf("invalid platform %q: %w", platform, domain.ErrBadRequest)
	}

	now := time.Now().UTC()
	d := &domain.UserDevice{
		DeviceToken: req.DeviceToken,
		UserID:      userID,
		Platform:    platform,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) Remove(ctx context.Context, userID, deviceToken string) error {
	return s.repo.Deactivate(ctx, userID, deviceToken)
}
