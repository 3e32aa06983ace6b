package fcm

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"github.com/go-notify-nosql/internal/config"
	"google.golang.org/api/option"
)

// MulticastResult summarises one multicast send. InvalidTokens holds the
// tokens the provider reported as unregistered or malformed — the caller is
// expected to prune them from the device registry.
type MulticastResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// Client sends multicast push messages through Firebase Cloud Messaging.
type Client struct {
	messaging *messaging.Client
	timeout   time.Duration
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FCMCredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	mc, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &Client{messaging: mc, timeout: time.Duration(cfg.FCMTimeout) * time.Second}, nil
}

// SendMulticast delivers one notification to all given tokens in a single
// provider call. The call carries a bounded timeout so a hung provider
// cannot stall a batch.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*MulticastResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.messaging.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		return nil, err
	}

	result := &MulticastResult{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}
	for i, r := range resp.Responses {
		if r.Success || r.Error == nil {
			continue
		}
		if messaging.IsRegistrationTokenNotRegistered(r.Error) || errorutils.IsInvalidArgument(r.Error) {
			result.InvalidTokens = append(result.InvalidTokens, tokens[i])
		}
	}
	return result, nil
}
