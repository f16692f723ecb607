package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const cardNumberLength = 16

// GenerateCardNumber generates a random 16-digit card number with a valid
// Luhn check digit.
func GenerateCardNumber() (string, error) {
	digits := make([]byte, cardNumberLength-1)
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteByte('4') // Visa-style prefix
	for _, b := range digits[1:] {
		builder.WriteByte(b%10 + '0')
	}

	partial := builder.String()
	builder.WriteByte(byte(luhnChecksum(partial)) + '0')
	return builder.String(), nil
}

// ValidCardNumber reports whether the number passes the Luhn check.
func ValidCardNumber(number string) bool {
	if len(number) < 2 {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return luhnChecksum(number[:len(number)-1]) == int(number[len(number)-1]-'0')
}

// luhnChecksum computes the Luhn check digit for a partial number.
func luhnChecksum(partial string) int {
	sum := 0
	alternate := true
	for i := len(partial) - 1; i >= 0; i-- {
		n := int(partial[i] - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	mod := sum % 10
	if mod == 0 {
		return 0
	}
	return 10 - mod
}
