package random

import (
	"crypto/rand"
	"math/big"
)

// Random draws room codes, guest name suffixes and deck orderings
type Random interface {
	// String returns length characters picked from alphabet
	String(length int, alphabet string) string

	// Shuffle permutes n elements in place through swap
	Shuffle(n int, swap func(i, j int))
}

// CryptoRandom draws from crypto/rand so room codes can't be predicted
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

func (*CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[intN(len(alphabet))]
	}
	return string(b)
}

// Shuffle is a Fisher-Yates shuffle
func (*CryptoRandom) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, intN(i+1))
	}
}

// intN returns a uniform int in [0, n); crypto/rand.Int only fails if the
// system entropy source is broken, which is unrecoverable.
func intN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("random: " + err.Error())
	}
	return int(v.Int64())
}
