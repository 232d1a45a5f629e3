package rbac

import "context"

type resolverContextKey struct{}

// ContextWithResolver stores the request principal's resolver in context.
func ContextWithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, resolverContextKey{}, r)
}

// ResolverFromContext extracts the resolver; absent resolvers deny everything.
func ResolverFromContext(ctx context.Context) *Resolver {
	if r, ok := ctx.Value(resolverContextKey{}).(*Resolver); ok && r != nil {
		return r
	}
	return NewResolver(nil)
}
