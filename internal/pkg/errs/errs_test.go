package errs

import (
	"net/http"
	"strings"
	"testing"
)

func TestNewErrorKnownCode(t *testing.T) {
	err := NewError(ErrInvalidCredentials)

	if err.Code != ErrInvalidCredentials {
		t.Errorf("code = %d, want %d", err.Code, ErrInvalidCredentials)
	}
	if err.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", err.Status, http.StatusUnauthorized)
	}
}

func TestNewErrorDefaultsStatusToOK(t *testing.T) {
	err := NewError(ErrInvalidEmail)

	if err.Status != http.StatusOK {
		t.Errorf("status = %d, want %d for codes without explicit status", err.Status, http.StatusOK)
	}
}

func TestNewErrorFormatsDetails(t *testing.T) {
	err := NewError(ErrInvalidPassword, 12)

	if !strings.Contains(err.Message, "12") {
		t.Errorf("message %q does not contain the formatted detail", err.Message)
	}
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(-1)

	if err.Code != ErrUnknown {
		t.Errorf("code = %d, want fallback %d", err.Code, ErrUnknown)
	}
	if err.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", err.Status, http.StatusInternalServerError)
	}
}

func TestErrorStringIncludesCodeAndStatus(t *testing.T) {
	err := NewError(ErrRateLimitExceeded)

	msg := err.Error()
	if !strings.Contains(msg, "1005") || !strings.Contains(msg, "429") {
		t.Errorf("Error() = %q, want code and HTTP status included", msg)
	}
}
