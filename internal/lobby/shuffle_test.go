// internal/lobby/shuffle_test.go
package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleDoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b", "c", "d"}
	out := Shuffle(in)

	assert.Equal(t, []string{"a", "b", "c", "d"}, in)
	assert.ElementsMatch(t, in, out)
	assert.Len(t, out, len(in))
}

func TestShuffleWithDeterministicSource(t *testing.T) {
	// intn always picking the top index leaves the order unchanged with an
	// inclusive swap bound.
	out := shuffleWith([]string{"a", "b", "c"}, func(n int) int { return n - 1 })
	assert.Equal(t, []string{"a", "b", "c"}, out)

	// intn always picking 0: [a b c] -> swap(2,0) -> [c b a] -> swap(1,0)
	// -> [b c a].
	out = shuffleWith([]string{"a", "b", "c"}, func(int) int { return 0 })
	assert.Equal(t, []string{"b", "c", "a"}, out)
}

func TestShuffleEmptyAndSingle(t *testing.T) {
	require.Empty(t, Shuffle(nil))
	assert.Equal(t, []string{"x"}, Shuffle([]string{"x"}))
}
