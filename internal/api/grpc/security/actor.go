package security

import (
	"context"

	"google.golang.org/grpc/metadata"

	domain "github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// Metadata keys carrying the requesting actor.
const (
	metadataHostname = "x-actor-hostname"
	metadataUsername = "x-actor-username"
)

// WithActor returns a context that sends actor with outgoing calls.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	if actor == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		metadataHostname, actor.Hostname,
		metadataUsername, actor.Username)
}

// ActorFromContext returns the actor sent with an incoming call, or nil.
func ActorFromContext(ctx context.Context) *domain.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	hostnames := md.Get(metadataHostname)
	usernames := md.Get(metadataUsername)

	if len(hostnames) == 0 && len(usernames) == 0 {
		return nil
	}

	actor := new(domain.Actor)

	if len(hostnames) > 0 {
		actor.Hostname = hostnames[0]
	}

	if len(usernames) > 0 {
		actor.Username = usernames[0]
	}

	return actor
}
