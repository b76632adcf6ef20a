/*
Package handler provides HTTP handler functions for account registration,
login, and logout.

Authentication stays entirely at this boundary: the relay core only ever
receives the already-verified user key carried by the session cookie.
*/
package handler

import (
	"errors"
	"net/http"
	"net/mail"
	"unicode/utf8"

	"chatrelay/internal/app/directory"
	"chatrelay/internal/app/relay"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/req"
	"chatrelay/internal/pkg/resp"
	"chatrelay/internal/pkg/session"
)

// MinPasswordLength is the minimum accepted password length in runes.
const MinPasswordLength = 12

type RegisterInput struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister processes the request to create a new account.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidDisplayName))
			return
		}

		if _, err := mail.ParseAddress(input.Email); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidEmail))
			return
		}

		if utf8.RuneCountInString(input.Password) < MinPasswordLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword, MinPasswordLength))
			return
		}

		profile, err := deps.Directory.CreateUser(r.Context(), input.UserName, input.Email, input.Password)
		if err != nil {
			if errors.Is(err, directory.ErrDuplicateEmail) {
				logx.Warn("Registration conflict: email already exists.")
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "Failed to create account")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": map[string]any{
				"id":        profile.ID,
				"user_name": profile.DisplayName,
			},
		})
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials, pre-registers the identity in the
// connection registry with Disconnected status, and mints the session cookie.
// An identity that already has a live connection yields a conflict.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		profile, err := deps.Directory.Authenticate(r.Context(), input.Email, input.Password)
		if err != nil {
			if errors.Is(err, directory.ErrBadCredentials) {
				logx.Warn("Login rejected: credentials did not match.")
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
				return
			}

			logx.Error(err, "Login failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if entry, ok := deps.Registry.Get(profile.Key); ok && entry.Connected() {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyConnected))
			return
		}

		deps.Registry.Upsert(profile.Key, relay.Entry{Status: relay.StatusDisconnected})

		token, err := session.Mint(profile.Key, deps.Config.SessionSecret, session.Lifetime)
		if err != nil {
			logx.Error(err, "Failed to mint session token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		session.SetCookie(w, token, !deps.Config.IsDevelopment())

		resp.RespondSuccess(w, r, map[string]any{
			"user": map[string]any{
				"id":        profile.ID,
				"user_name": profile.DisplayName,
			},
		})
	}
}

// HandleLogout clears the session cookie and removes the registry entry.
// Removal also tears down a live connection's pump, if one is attached.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userKey, err := session.KeyFromRequest(r, deps.Config.SessionSecret)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		deps.Registry.Remove(userKey)
		session.ClearCookie(w)

		resp.RespondSuccess(w, r, nil)
	}
}
