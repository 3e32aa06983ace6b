package channel

import (
	"context"
	"log"

	"github.com/go-notify-nosql/internal/domain"
	"github.com/go-notify-nosql/internal/infrastructure/smtp"
)

type userDirectory interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// EmailChannel delivers the notification as a plain email to the user's
// confirmed address.
type EmailChannel struct {
	users  userDirectory
	mailer smtp.Mailer
}

func NewEmailChannel(users userDirectory, mailer smtp.Mailer) *EmailChannel {
	return &EmailChannel{users: users, mailer: mailer}
}

func (c *EmailChannel) Name() string { return NameEmail }

func (c *EmailChannel) Send(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool {
	u, err := c.users.Get(ctx, userID)
	if err != nil {
		log.Printf("email: look up user %s: %v", userID, err)
		return false
	}
	if u.Email == "" || !u.EmailConfirmed {
		log.Printf("email: no confirmed address for user %s", userID)
		return false
	}
	if err := c.mailer.SendEmail(u.Email, title, message); err != nil {
		log.Printf("email: send to %s: %v", userID, err)
		return false
	}
	return true
}
