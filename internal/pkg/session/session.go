/*
Package session mints and validates the signed session cookie that carries an
authenticated user key between the login handler and the websocket endpoint.

The cookie value is an HS256-signed JWT. The relay core never sees the cookie;
it receives the already-verified user key extracted here.
*/
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// CookieName is the name of the session cookie set at login.
	CookieName = "relay_session"

	// Lifetime is the validity duration of a minted session.
	Lifetime = 24 * time.Hour

	// tokenIssuer identifies the issuer of the session token.
	tokenIssuer = "chatrelay"
)

// ErrNoSession is returned when the request carries no session cookie.
var ErrNoSession = errors.New("session: no session cookie")

// Claims are the JWT claims stored in the session cookie.
type Claims struct {
	jwt.StandardClaims

	// Key is the authenticated user key (the registry key).
	Key string `json:"key"`
}

// Mint creates a signed session token for the given user key.
func Mint(userKey, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    tokenIssuer,
		},
		Key: userKey,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// Parse validates the token string and returns the user key it carries.
func Parse(tokenString, secret string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return "", err
	}

	if !token.Valid || claims.Key == "" {
		return "", errors.New("invalid or expired session token")
	}

	return claims.Key, nil
}

// SetCookie attaches a session cookie carrying the token to the response.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(Lifetime / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the client.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// KeyFromRequest extracts and validates the user key from the request's
// session cookie. ErrNoSession distinguishes a missing cookie from an
// invalid one.
func KeyFromRequest(r *http.Request, secret string) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}

	return Parse(cookie.Value, secret)
}
