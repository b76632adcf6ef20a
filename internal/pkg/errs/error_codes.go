/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained trailing content after valid JSON.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the configured limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Account and Registry Business Logic Errors
const (
	// ErrInvalidDisplayName indicates that an empty or malformed display name was submitted.
	ErrInvalidDisplayName = 2101

	// ErrInvalidEmail indicates that the submitted email address does not look like an email.
	ErrInvalidEmail = 2102

	// ErrInvalidPassword indicates that the submitted password does not meet the length policy.
	ErrInvalidPassword = 2103

	// ErrUserAlreadyExists indicates that the email is already registered.
	ErrUserAlreadyExists = 2104

	// ErrInvalidCredentials indicates that the email and password did not match an account.
	ErrInvalidCredentials = 2105

	// ErrUserNotFound indicates that no account exists for the requested identity.
	ErrUserNotFound = 2106

	// ErrAlreadyConnected indicates that the identity already has a live connection attached.
	ErrAlreadyConnected = 2107
)

// 3xxx: Session and Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid session cookie.
	ErrUnauthorized = 3001

	// ErrSessionExpired indicates that the session cookie was valid but has expired.
	ErrSessionExpired = 3002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal server error.
	ErrUnknown = 5000
)
