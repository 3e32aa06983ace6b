package channel

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/go-notify-nosql/internal/domain"
)

// Channel names. The mapping from name to preference flag is closed:
// adding a channel means implementing Channel and extending enabledFor.
const (
	NamePush  = "push"
	NameEmail = "email"
	NameSMS   = "sms"
)

// Channel is one delivery mechanism. Send reports true when at least one
// underlying delivery reached the user; it must absorb its own failures.
type Channel interface {
	Name() string
	Send(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool
}

type preferenceStore interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
}

// Registry holds the ordered channel list and gates each channel on the
// recipient's preferences before fanning out.
type Registry struct {
	prefs    preferenceStore
	channels []Channel
}

func NewRegistry(prefs preferenceStore) *Registry {
	return &Registry{prefs: prefs}
}

func (r *Registry) Register(ch Channel) {
	r.channels = append(r.channels, ch)
	log.Printf("registered notification channel: %s", ch.Name())
}

// Dispatch fans the notification out to every channel the user has not
// opted out of. Channels run concurrently; one channel's failure or panic
// never blocks the others. The result is the OR of all channel results —
// the notification counts as delivered if any surface reached the user.
func (r *Registry) Dispatch(ctx context.Context, userID, title, message, notifType string, data map[string]interface{}) bool {
	prefs, err := r.prefs.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Printf("dispatch: load preferences for %s: %v", userID, err)
		}
		// No row (or unreadable row) means all channels enabled.
		prefs = domain.DefaultPreferences(userID)
	}

	var qualifying []Channel
	for _, ch := range r.channels {
		if enabledFor(prefs, ch.Name()) {
			qualifying = append(qualifying, ch)
		}
	}
	if len(qualifying) == 0 {
		log.Printf("dispatch: no qualifying channels for %s (type=%s)", userID, notifType)
		return false
	}

	results := make([]bool, len(qualifying))
	var wg sync.WaitGroup
	for i, ch := range qualifying {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("dispatch: channel %s panicked for %s: %v", ch.Name(), userID, rec)
				}
			}()
			results[i] = ch.Send(ctx, userID, title, message, notifType, data)
		}(i, ch)
	}
	wg.Wait()

	success := false
	for _, ok := range results {
		success = success || ok
	}
	log.Printf("dispatched notification (user=%s type=%s channels=%d success=%t)",
		userID, notifType, len(qualifying), success)
	return success
}

// enabledFor maps a channel name onto the corresponding preference flag.
// Unknown channel names are enabled: preferences only gate known surfaces.
func enabledFor(p *domain.NotificationPreferences, name string) bool {
	switch name {
	case NamePush:
		return p.PushEnabled
	case NameEmail:
		return p.EmailEnabled
	case NameSMS:
		return p.SMSEnabled
	default:
		return true
	}
}
