/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is primarily used to generate fixed-length Base62 connection ids and standard UUID message ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// SocketIDLength is the fixed length of a generated connection id.
	SocketIDLength = 20
)

// base62 returns a random Base62 string of the given length using crypto/rand.
func base62(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// SocketID generates the transport-level id of a new live connection.
func SocketID() (string, error) {
	return base62(SocketIDLength)
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// IsValidSocketID checks if the given string has the shape of a generated connection id.
func IsValidSocketID(id string) bool {
	if len(id) != SocketIDLength {
		return false
	}

	for _, char := range id {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
