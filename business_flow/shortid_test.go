package businessflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomShortID(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id, err := randomShortID()
		require.NoError(t, err)
		assert.Len(t, id, shortIDLength)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(shortIDAlphabet, r), "unexpected character %q", r)
		}
		seen[id] = struct{}{}
	}
	// 100 draws from a 62^8 space must not collide
	assert.Len(t, seen, 100)
}
