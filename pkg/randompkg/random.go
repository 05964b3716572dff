// Package randompkg provides functionality gor generating random applications common items.
package randompkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// AccountNumberDigits is the length of generated account numbers.
const AccountNumberDigits = 10

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int64) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// IntBetween generates a random integer between min and max.
func IntBetween(min, max int64) int64 {
	return min + Intn(max-min)
}

// String generates a random string of length n.
func String(n int) string {
	var sb strings.Builder

	k := int64(len(alphabet))

	for i := 0; i < n; i++ {
		c := alphabet[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// Name generates a random customer name.
func Name() string {
	return String(6)
}

// AccountNumber generates a uniformly random zero-padded 10-digit account
// number. Collisions are possible and are caught by the store's uniqueness
// constraint.
func AccountNumber() string {
	return fmt.Sprintf("%0*d", AccountNumberDigits, Intn(1e10))
}

// PIN generates a random 4-digit PIN.
func PIN() string {
	return fmt.Sprintf("%04d", Intn(10_000))
}
