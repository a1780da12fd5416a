package login

import "errors"

var (
	// ErrInvalidRequestBody is returned when the login request body cannot
	// be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")

	// ErrMissingFields is returned when provider, username or password is
	// missing from the request.
	ErrMissingFields = errors.New("provider, username and password are required")

	// ErrUnknownProvider is returned when the named provider does not exist
	// or is disabled.
	ErrUnknownProvider = errors.New("unknown or disabled authentication provider")

	// ErrInvalidCredentials is the generic message for every authentication
	// failure. It never reveals which part of the credentials was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInternalServerError is returned for unexpected failures during the
	// login process.
	ErrInternalServerError = errors.New("internal server error")
)
