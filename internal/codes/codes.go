package codes

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MaxAttempts caps the collision-retry loop of GenerateUnique.
const MaxAttempts = 12

var ErrExhausted = errors.New("unable to generate unique code")

func randomCode(length int) string {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf)
}

// GenerateUnique returns a random uppercase+digits code that passes the
// provided exists() check, retrying up to MaxAttempts times.
func GenerateUnique(length int, exists func(code string) (bool, error)) (string, error) {
	for i := 0; i < MaxAttempts; i++ {
		code := randomCode(length)
		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}
