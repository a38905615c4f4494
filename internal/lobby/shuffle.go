// internal/lobby/shuffle.go
package lobby

import "math/rand"

// Shuffle returns a uniformly random permutation of ids without mutating the
// input (Fisher-Yates, inclusive swap bound).
func Shuffle(ids []string) []string {
	return shuffleWith(ids, rand.Intn)
}

func shuffleWith(ids []string, intn func(int) int) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	for i := len(out) - 1; i > 0; i-- {
		j := intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
