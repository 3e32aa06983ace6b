package domain

import "time"

// NotificationPreferences holds per-user channel opt-in flags.
// A missing row means "all enabled" — DefaultPreferences fills the gap.
type NotificationPreferences struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	PushEnabled  bool      `json:"push_enabled" dynamodbav:"push_enabled"`
	EmailEnabled bool      `json:"email_enabled" dynamodbav:"email_enabled"`
	SMSEnabled   bool      `json:"sms_enabled" dynamodbav:"sms_enabled"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// DefaultPreferences returns the all-enabled record used when no row exists.
func DefaultPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:       userID,
		PushEnabled:  true,
		EmailEnabled: true,
		SMSEnabled:   true,
	}
}

// UpdatePreferencesRequest carries a partial update: omitted flags keep
// their stored value.
type UpdatePreferencesRequest struct {
	PushEnabled  *bool `json:"push_enabled,omitempty"`
	EmailEnabled *bool `json:"email_enabled,omitempty"`
	SMSEnabled   *bool `json:"sms_enabled,omitempty"`
}
