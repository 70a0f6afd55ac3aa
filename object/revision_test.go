package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRevID(t *testing.T) {
	rev, err := ParseRevID("3-abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rev.Gen)
	assert.Equal(t, "abc123", rev.Hash)
	assert.Equal(t, "3-abc123", rev.String())
}

func TestParseRevIDInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-abc", "3-", "0-abc", "-1-abc", "x-abc"} {
		_, err := ParseRevID(input)
		assert.Error(t, err, input)
	}
}

func TestRevIDCompare(t *testing.T) {
	assert.Equal(t, -1, RevID{Gen: 1, Hash: "zz"}.Compare(RevID{Gen: 2, Hash: "aa"}))
	assert.Equal(t, 1, RevID{Gen: 2, Hash: "aa"}.Compare(RevID{Gen: 1, Hash: "zz"}))
	assert.Equal(t, 0, RevID{Gen: 2, Hash: "aa"}.Compare(RevID{Gen: 2, Hash: "aa"}))
	// equal generation breaks the tie on the hash bytes
	assert.Equal(t, 1, RevID{Gen: 2, Hash: "ff"}.Compare(RevID{Gen: 2, Hash: "aa"}))
}

func TestRevIDIsZero(t *testing.T) {
	assert.True(t, RevID{}.IsZero())
	assert.False(t, RevID{Gen: 1, Hash: "a"}.IsZero())
}
