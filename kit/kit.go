// CLAUDE:SUMMARY Transport-agnostic endpoint plumbing — Endpoint, Middleware chain, request-scoped context keys.
// Package kit holds the small transport-agnostic pieces shared by the HTTP
// and MCP surfaces: the Endpoint function shape, middleware chaining, and
// request-scoped context accessors.
package kit

import "context"

// Endpoint is the transport-agnostic request handler shape.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left to right: the first runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
