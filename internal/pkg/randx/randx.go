/*
Package randx provides cryptographically secure random identifiers.

It generates UUID account identifiers and fixed-length Base62 tokens used for
the development-mode session secret.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the number of characters in the Base62 set.
	Base62Len = int64(len(Base62Chars))
)

// UserID generates a UUID v4 string used as a stable account identifier.
func UserID() string {
	return uuid.New().String()
}

// Token generates a Base62 token of the given length using crypto/rand.
func Token(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", length)
	}

	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for token: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}
