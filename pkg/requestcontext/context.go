// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by middleware and read by handlers and services.
//
//	actorID, role := requestcontext.Actor(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Request time lives in pkg/platform/middleware/requesttime.
package requestcontext

import (
	"context"

	id "barangay/pkg/domain"
)

type (
	actorIDKey     struct{}
	actorRoleKey   struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceLabelKey struct{}
	requestIDKey   struct{}
)

// -----------------------------------------------------------------------------
// Actor
// -----------------------------------------------------------------------------

// Actor returns the authenticated actor and the role asserted by their token.
// Both are zero when the request was not authenticated.
func Actor(ctx context.Context) (id.ActorID, string) {
	actorID, _ := ctx.Value(actorIDKey{}).(id.ActorID)
	role, _ := ctx.Value(actorRoleKey{}).(string)
	return actorID, role
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actorID id.ActorID, role string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey{}, actorID)
	return context.WithValue(ctx, actorRoleKey{}, role)
}

// -----------------------------------------------------------------------------
// Client metadata
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// DeviceLabel is the human-readable device name derived from the User-Agent,
// e.g. "Chrome on Android".
func DeviceLabel(ctx context.Context) string {
	if label, ok := ctx.Value(deviceLabelKey{}).(string); ok {
		return label
	}
	return ""
}

func WithDeviceLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, deviceLabelKey{}, label)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}
