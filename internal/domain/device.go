package domain

import "time"

// Device platforms.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)

// ValidPlatform reports whether p is a known device platform.
func ValidPlatform(p string) bool {
	return p == PlatformAndroid || p == PlatformIOS || p == PlatformWeb
}

// UserDevice is one installed app instance eligible for push delivery.
// The token is the unique key: re-registering an existing token moves it to
// the new owner instead of duplicating the row.
type UserDevice struct {
	DeviceToken string    `json:"device_token" dynamodbav:"device_token"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	Platform    string    `json:"platform" dynamodbav:"platform"`
	IsActive    bool      `json:"is_active" dynamodbav:"is_active"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type RegisterDeviceRequest struct {
	DeviceToken string `json:"device_token" validate:"required"`
	Platform    string `json:"platform"`
}

type RemoveDeviceRequest struct {
	DeviceToken string `json:"device_token" validate:"required"`
}
