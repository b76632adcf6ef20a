/*
Package errs provides custom error types and application-level error code constants.

This file maps error codes to their CustomError templates, standardizing HTTP
responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status defaults to HTTP 200 when the error is constructed.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Account and Registry Business Logic Errors
	ErrInvalidDisplayName: {Code: ErrInvalidDisplayName, Message: "Don't you have a name?"},
	ErrInvalidEmail:       {Code: ErrInvalidEmail, Message: "Use a valid email."},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Password needs to be at least %d characters."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "This email is already registered.", Status: http.StatusConflict},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect email or password.", Status: http.StatusUnauthorized},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrAlreadyConnected:   {Code: ErrAlreadyConnected, Message: "Looks like you're already connected.", Status: http.StatusConflict},

	// 3xxx: Session and Security Errors
	ErrUnauthorized:   {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrSessionExpired: {Code: ErrSessionExpired, Message: "Your session has expired. Please sign in again.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
