package client

import "context"

type contextKey struct{}

// WithClient returns a context carrying c as the active client.
// A nil client leaves ctx untouched.
func WithClient(ctx context.Context, c *Client) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the active client, if any
func FromContext(ctx context.Context) (*Client, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(contextKey{}).(*Client)
	return c, ok && c != nil
}

// Require returns the active client or ErrUnconfiguredClient
func Require(ctx context.Context) (*Client, error) {
	c, ok := FromContext(ctx)
	if !ok {
		return nil, ErrUnconfiguredClient
	}
	return c, nil
}

// WithoutClient clears the active client, but only when it is exactly c.
// A stale clear from another session returns ctx unchanged.
func WithoutClient(ctx context.Context, c *Client) context.Context {
	active, ok := FromContext(ctx)
	if !ok || active != c {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, (*Client)(nil))
}
