package probe

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// randomFloatDivisor sets the resolution of generated readings.
const randomFloatDivisor = 1000000

// getRandomFloat returns a random float64 in [0.0, 1.0] using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor+1))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomIndex returns a random index in [0, n).
func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateReadings returns count vectors of dim in-range readings.
func generateReadings(count, dim int) [][]float64 {
	out := make([][]float64, count)
	for i := range out {
		v := make([]float64, dim)
		for j := range v {
			v[j] = getRandomFloat()
		}
		out[i] = v
	}
	return out
}

func newRequestID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
