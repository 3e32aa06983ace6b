package domain

import "time"

// Notification types. The enum is closed: rows are written by business-event
// triggers in the persistence layer and validated on the admin send paths.
const (
	TypeMoneySuccess       = "money_success"
	TypeMoneyFailed        = "money_failed"
	TypeWithdrawalApproved = "withdrawal_approved"
	TypeWithdrawalRejected = "withdrawal_rejected"
	TypeKYCVerified        = "kyc_verified"
	TypeKYCRejected        = "kyc_rejected"
	TypeContestWon         = "contest_won"
	TypeContestLost        = "contest_lost"
	TypePromotional        = "promotional"
)

var notificationTypes = map[string]struct{}{
	TypeMoneySuccess:       {},
	TypeMoneyFailed:        {},
	TypeWithdrawalApproved: {},
	TypeWithdrawalRejected: {},
	TypeKYCVerified:        {},
	TypeKYCRejected:        {},
	TypeContestWon:         {},
	TypeContestLost:        {},
	TypePromotional:        {},
}

// ValidNotificationType reports whether t is a member of the closed type enum.
func ValidNotificationType(t string) bool {
	_, ok := notificationTypes[t]
	return ok
}

type Notification struct {
	NotificationID string                 `json:"id" dynamodbav:"notification_id"`
	UserID         string                 `json:"user_id" dynamodbav:"user_id"`
	Title          string                 `json:"title" dynamodbav:"title"`
	Message        string                 `json:"message" dynamodbav:"message"`
	Type           string                 `json:"type" dynamodbav:"type"`
	Data           map[string]interface{} `json:"data,omitempty" dynamodbav:"data"`
	Read           bool                   `json:"read" dynamodbav:"read"`
	Clicked        bool                   `json:"clicked" dynamodbav:"clicked"`
	CreatedAt      time.Time              `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at" dynamodbav:"updated_at"`
}

// Bulk-status actions accepted by BulkUpdateStatus.
const (
	ActionMarkAllRead   = "mark_all_read"
	ActionMarkAllUnread = "mark_all_unread"
)

// Pagination describes one page of a notification listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NotificationList is the result of a paginated listing.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	Pagination    Pagination     `json:"pagination"`
	UnreadCount   int            `json:"unread_count"`
}

type SendNotificationRequest struct {
	UserID  string                 `json:"user_id" validate:"required"`
	Title   string                 `json:"title" validate:"required,max=255"`
	Message string                 `json:"message" validate:"required"`
	Type    string                 `json:"type" validate:"required"`
	Data    map[string]interface{} `json:"data"`
}

type BulkActionRequest struct {
	Action          string   `json:"action" validate:"required"`
	NotificationIDs []string `json:"notification_ids"`
}

// BulkFilters narrows the bulk-send audience when no explicit id list is given.
type BulkFilters struct {
	Status         string `json:"status,omitempty" validate:"omitempty,oneof=active banned pending"`
	DeviceType     string `json:"device_type,omitempty" validate:"omitempty,oneof=android ios"`
	HasDeviceToken *bool  `json:"has_device_token,omitempty"`
}

type SendBulkNotificationRequest struct {
	Title   string                 `json:"title" validate:"required,max=255"`
	Message string                 `json:"message" validate:"required"`
	Type    string                 `json:"type" validate:"required"`
	Data    map[string]interface{} `json:"data"`
	UserIDs []string               `json:"user_ids,omitempty"`
	Filters *BulkFilters           `json:"filters,omitempty"`
}

// BulkError records one recipient's failure inside an otherwise successful run.
type BulkError struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// BulkNotificationResult aggregates a bulk send.
// SentCount + FailedCount always equals the deduplicated audience size.
type BulkNotificationResult struct {
	SentCount       int         `json:"sent_count"`
	FailedCount     int         `json:"failed_count"`
	NotificationIDs []string    `json:"notification_ids"`
	Errors          []BulkError `json:"errors"`
}
