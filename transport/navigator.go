package transport

import "context"

// Navigator performs the hard navigation that follows a rejected session. In a
// browser this was a full page load; in Go it is whatever the host application
// treats as "start over at the login entry point".
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, target string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, target string) {
	f(ctx, target)
}

// NopNavigator ignores navigation requests.
type NopNavigator struct{}

// Navigate does nothing.
func (NopNavigator) Navigate(context.Context, string) {}
