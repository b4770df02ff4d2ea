/*
Package randx provides cryptographically secure identifiers for tickets,
token ids and proof-of-work nonces.
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

	// SecretLength is the length of the random part of a token id.
	SecretLength = 24
)

// Base62 returns a random Base62 string of the given length drawn from crypto/rand.
func Base62(length int) (string, error) {
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

// Secret returns a random Base62 string of SecretLength characters.
func Secret() (string, error) {
	return Base62(SecretLength)
}

// Ticket returns a fresh random ticket id (UUID v4).
func Ticket() string {
	return uuid.NewString()
}

// IsValidTicket reports whether s has the shape of a ticket id.
// It does not say whether the ticket is still pending.
func IsValidTicket(s string) bool {
	if _, err := uuid.Parse(s); err != nil {
		return false
	}
	return len(s) == 36 && strings.Count(s, "-") == 4
}
