package http

import (
	"github.com/go-notify-nosql/internal/application/channel"
	"github.com/go-notify-nosql/internal/application/listener"
	"github.com/go-notify-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-notify-nosql/internal/infrastructure/jwt"
	redisfeed "github.com/go-notify-nosql/internal/infrastructure/redis"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	DeviceRepo       *dynamo.DeviceRepo
	NotificationRepo *dynamo.NotificationRepo
	PreferenceRepo   *dynamo.PreferenceRepo
	Feed             *redisfeed.Feed
	Registry         *channel.Registry
	Listener         *listener.Listener
	JWTProvider      *jwtinfra.Provider
}
