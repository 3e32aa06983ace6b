package channel

import (
	"context"
	"fmt"
	"log"

	"github.com/go-notify-nosql/internal/infrastructure/sns"
)

// SMSChannel delivers the notification as an SMS to the user's phone number.
type SMSChannel struct {
	users  userDirectory
	sender sns.SMSSender
}

func NewSMSChannel(users userDirectory, sender sns.SMSSender) *SMSChannel {
	return &SMSChannel{users: users, sender: sender}
}

func (c *SMSChannel) Name() string { return NameSMS }

func (c *SMSChannel) Send(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool {
	u, err := c.users.Get(ctx, userID)
	if err != nil {
		log.Printf("sms: look up user %s: %v", userID, err)
		return false
	}
	if u.Phone == nil || *u.Phone == "" {
		log.Printf("sms: no phone number for user %s", userID)
		return false
	}
	body := fmt.Sprintf("%s: %s", title, message)
	if err := c.sender.SendSMS(ctx, *u.Phone, body); err != nil {
		log.Printf("sms: send to %s: %v", userID, err)
		return false
	}
	return true
}
