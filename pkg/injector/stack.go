package injector

import (
	"context"
	"strings"

	"dicore/pkg/dierr"
)

// frame is one link of the per-resolution injection stack. The stack is
// modeled as an immutable singly-linked list threaded through
// context.Context (§9 design note: "global per-thread state -> explicit
// context") rather than a goroutine-ID-keyed global map: every recursive
// call receives a context carrying its own private view of the stack, so
// concurrent resolutions sharing a parent context never race on a shared
// mutable slice.
type frame struct {
	key  string
	prev *frame
}

type stackCtxKey struct{}

// pushFrame returns a context with key pushed onto the injection stack, or
// a CircularDependency error naming the full chain T0 -> T1 -> ... -> T0 if
// key is already present.
func pushFrame(ctx context.Context, key string) (context.Context, error) {
	top, _ := ctx.Value(stackCtxKey{}).(*frame)
	for f := top; f != nil; f = f.prev {
		if f.key == key {
			return ctx, dierr.New(dierr.CircularDependency, "circular dependency: %s", chainString(top, key))
		}
	}
	return context.WithValue(ctx, stackCtxKey{}, &frame{key: key, prev: top}), nil
}

func chainString(top *frame, closingKey string) string {
	var keys []string
	for f := top; f != nil; f = f.prev {
		keys = append(keys, f.key)
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	keys = append(keys, closingKey)
	return strings.Join(keys, " -> ")
}
