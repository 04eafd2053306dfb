package scope

import (
	"context"

	"dicore/pkg/dierr"
)

// Go has no durable per-thread identity the way the JVM does (goroutines
// migrate between OS threads and are far cheaper, so "current thread" is
// not a stable storage key). §9's design note ("global per-thread state ->
// explicit context") is carried through literally: RequestHandler,
// SessionHandler, and ConversationHandler are keyed off an id the caller
// threads through context.Context, not off goroutine identity.
type ctxKey int

const (
	requestIDKey ctxKey = iota
	sessionIDKey
	conversationIDKey
)

// WithRequestID attaches a request-scope partition id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithSessionID attaches a session-scope partition id to ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithConversationID attaches a conversation-scope partition id to ctx.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationIDKey, id)
}

func requestID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok || id == "" {
		return "", dierr.New(dierr.DomainFailure, "request scope requires a request id in context (see scope.WithRequestID)")
	}
	return id, nil
}

func sessionID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(sessionIDKey).(string)
	if !ok || id == "" {
		return "", dierr.New(dierr.DomainFailure, "session scope requires a session id in context (see scope.WithSessionID)")
	}
	return id, nil
}

func conversationID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(conversationIDKey).(string)
	if !ok || id == "" {
		return "", dierr.New(dierr.DomainFailure, "conversation scope requires a conversation id in context (see scope.WithConversationID)")
	}
	return id, nil
}
