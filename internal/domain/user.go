package domain

import "time"

// RoleAdmin gates the send and startup endpoints.
const RoleAdmin = "admin"

// Account statuses used by bulk-send audience filters.
const (
	StatusActive  = "active"
	StatusBanned  = "banned"
	StatusPending = "pending"
)

// User is the directory subset this service consumes: enough to resolve
// audiences and to address the email/sms channels. Account lifecycle is
// owned by the auth collaborator.
type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	Phone          *string   `json:"phone" dynamodbav:"phone"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	Banned         bool      `json:"banned" dynamodbav:"banned"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Status maps confirmation/ban state onto the filter enum.
func (u *User) Status() string {
	switch {
	case u.Banned:
		return StatusBanned
	case !u.EmailConfirmed:
		return StatusPending
	default:
		return StatusActive
	}
}
