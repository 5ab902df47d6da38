package animal

import (
	"context"
	"fmt"
	"sync"
)

// OwnerResolver looks up the owner record behind an id and returns a
// display label for it, or ErrOwnerNotFound.
type OwnerResolver interface {
	Resolve(ctx context.Context, id int64) (string, error)
}

// OwnerResolverFunc adapts a function to OwnerResolver.
type OwnerResolverFunc func(ctx context.Context, id int64) (string, error)

// Resolve calls f.
func (f OwnerResolverFunc) Resolve(ctx context.Context, id int64) (string, error) {
	return f(ctx, id)
}

// OwnerRegistry maps each owner kind to the resolver for its records.
// Kinds without a resolver simply cannot be resolved.
type OwnerRegistry struct {
	mu        sync.RWMutex
	resolvers map[OwnerKind]OwnerResolver
}

// NewOwnerRegistry returns an empty registry.
func NewOwnerRegistry() *OwnerRegistry {
	return &OwnerRegistry{resolvers: make(map[OwnerKind]OwnerResolver)}
}

// NewDefaultOwnerRegistry registers a resolver for every known kind. The
// Person, Shelter and Zoo tables live outside this schema, so each resolver
// only accepts a positive id and labels it "Kind#id".
func NewDefaultOwnerRegistry() *OwnerRegistry {
	r := NewOwnerRegistry()

	for _, k := range OwnerKinds() {
		r.resolvers[k] = idResolver(k)
	}

	return r
}

func idResolver(kind OwnerKind) OwnerResolver {
	return OwnerResolverFunc(func(_ context.Context, id int64) (string, error) {
		if id <= 0 {
			return "", fmt.Errorf("%s id %d: %w", kind, id, ErrOwnerNotFound)
		}

		return Owner{Kind: kind, ID: id}.String(), nil
	})
}

// Register sets the resolver for kind, replacing any previous one.
func (r *OwnerRegistry) Register(kind OwnerKind, res OwnerResolver) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOwnerKind, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.resolvers[kind] = res

	return nil
}

// Kinds returns the kinds that have a resolver, in OwnerKinds order.
func (r *OwnerRegistry) Kinds() []OwnerKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []OwnerKind

	for _, k := range OwnerKinds() {
		if _, ok := r.resolvers[k]; ok {
			out = append(out, k)
		}
	}

	return out
}

// Resolve dispatches o to the resolver registered for its kind.
func (r *OwnerRegistry) Resolve(ctx context.Context, o Owner) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}

	r.mu.RLock()
	res, ok := r.resolvers[o.Kind]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoResolver, o.Kind)
	}

	label, err := res.Resolve(ctx, o.ID)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", o, err)
	}

	return label, nil
}
