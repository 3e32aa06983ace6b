package channel

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-notify-nosql/internal/infrastructure/fcm"
)

type deviceRegistry interface {
	ActiveTokens(ctx context.Context, userID string) ([]string, error)
	DeactivateMany(ctx context.Context, tokens []string) error
}

type pushProvider interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*fcm.MulticastResult, error)
}

// PushChannel delivers through the push provider. One multicast call covers
// all of the user's devices; tokens the provider rejects as unregistered or
// invalid are pruned from the registry.
type PushChannel struct {
	devices  deviceRegistry
	provider pushProvider
}

func NewPushChannel(devices deviceRegistry, provider pushProvider) *PushChannel {
	return &PushChannel{devices: devices, provider: provider}
}

func (c *PushChannel) Name() string { return NamePush }

func (c *PushChannel) Send(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool {
	tokens, err := c.devices.ActiveTokens(ctx, userID)
	if err != nil {
		log.Printf("push: resolve tokens for %s: %v", userID, err)
		return false
	}
	if len(tokens) == 0 {
		log.Printf("push: no tokens for user %s", userID)
		return false
	}

	result, err := c.provider.SendMulticast(ctx, tokens, title, message, coerceData(data))
	if err != nil {
		// Provider failure is a full failure for this user; it never
		// propagates past the channel boundary.
		log.Printf("push: provider error for %s: %v", userID, err)
		return false
	}

	if len(result.InvalidTokens) > 0 {
		// Best effort: a pruning failure must not fail the send itself.
		if err := c.devices.DeactivateMany(ctx, result.InvalidTokens); err != nil {
			log.Printf("push: deactivate %d invalid tokens: %v", len(result.InvalidTokens), err)
		} else {
			log.Printf("push: deactivated %d invalid tokens for %s", len(result.InvalidTokens), userID)
		}
	}

	log.Printf("push: sent to %s (success=%d failure=%d)", userID, result.SuccessCount, result.FailureCount)
	return result.SuccessCount > 0
}

// coerceData flattens the open payload map into the homogeneous
// string-valued map the provider contract requires.
func coerceData(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
