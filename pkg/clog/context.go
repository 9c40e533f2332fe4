package clog

import (
	"context"
	"maps"
	"sync"
)

// Attribute keys shared by the middleware, the service layer and the handlers.
const (
	OperationKey      = "operation"
	ProjectIDKey      = "project_id"
	TaskIDKey         = "task_id"
	ActorIDKey        = "actor_id"
	ErrorAttributeKey = "error.message"
	ErrorKindKey      = "error.kind"
	StackAttributeKey = "error.stack"
)

// bag holds the attributes collected while one request is served. Every
// record logged with the request context carries them.
type bag struct {
	mu    sync.RWMutex
	attrs map[string]any
}

type bagKey struct{}

func bagFrom(ctx context.Context) *bag {
	b, _ := ctx.Value(bagKey{}).(*bag)
	return b
}

// ContextWithSlog starts a new attribute bag. A context that already has one
// gets a fresh bag seeded with a copy of the parent's attributes.
func ContextWithSlog(ctx context.Context) context.Context {
	b := &bag{attrs: make(map[string]any)}
	if parent := bagFrom(ctx); parent != nil {
		b.attrs = parent.snapshot()
	}
	return context.WithValue(ctx, bagKey{}, b)
}

// AddAttribute is a no-op for contexts without a bag.
func AddAttribute(ctx context.Context, key string, value any) {
	b := bagFrom(ctx)
	if b == nil {
		return
	}
	b.mu.Lock()
	b.attrs[key] = value
	b.mu.Unlock()
}

func AddAttributes(ctx context.Context, attributes map[string]any) {
	b := bagFrom(ctx)
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	mergeMaps(b.attrs, attributes)
}

func GetAttribute[T any](ctx context.Context, key string) T {
	var zero T
	b := bagFrom(ctx)
	if b == nil {
		return zero
	}
	b.mu.RLock()
	v, ok := b.attrs[key]
	b.mu.RUnlock()
	if !ok {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		return zero
	}
	return t
}

// mergeMaps merges nested maps key by key instead of replacing them.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		vm, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		if dm, ok := dst[k].(map[string]any); ok {
			mergeMaps(dm, vm)
			continue
		}
		dst[k] = vm
	}
}

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func GetError(ctx context.Context) error {
	return GetAttribute[error](ctx, ErrorAttributeKey)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

func GetStack(ctx context.Context) string {
	return GetAttribute[string](ctx, StackAttributeKey)
}

// AddErrorKind records the stable rejection reason of a failed operation.
func AddErrorKind(ctx context.Context, kind string) {
	if kind == "" {
		return
	}
	AddAttribute(ctx, ErrorKindKey, kind)
}

func (b *bag) snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.attrs)
}

func GetAttributes(ctx context.Context) map[string]any {
	b := bagFrom(ctx)
	if b == nil {
		return nil
	}
	return b.snapshot()
}
