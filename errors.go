package goDesk

import "errors"

var (
	// ErrBuilderUsed is returned when Build is called twice on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrStoreRequired is returned when no session store is configured or supplied.
	ErrStoreRequired = errors.New("session store required")
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrMalformedLoginResponse is returned when a login succeeds at the HTTP level
	// but lacks an access token or a decodable user profile.
	ErrMalformedLoginResponse = errors.New("malformed login response")
	// ErrUnknownStoreBackend is returned by OpenStore for an unsupported backend name.
	ErrUnknownStoreBackend = errors.New("unknown store backend")
)
