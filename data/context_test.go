package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONTEXT SET CANONICALIZATION
// =============================================================================

func TestContextSet_OrderInsensitive(t *testing.T) {
	a := NewContextSet(NewContext("world", "nether"), NewContext("server", "creative"))
	b := NewContextSet(NewContext("server", "creative"), NewContext("world", "nether"))

	assert.Equal(t, a, b, "construction order must not matter")
}

func TestContextSet_DuplicatesCollapse(t *testing.T) {
	a := NewContextSet(NewContext("world", "nether"), NewContext("world", "nether"))
	b := NewContextSet(NewContext("world", "nether"))

	assert.Equal(t, a, b)
	assert.Equal(t, 1, a.Len())
}

func TestContextSet_Global(t *testing.T) {
	assert.True(t, NewContextSet().IsGlobal())
	assert.True(t, GlobalContext.IsGlobal())
	assert.Equal(t, 0, GlobalContext.Len())
	assert.Nil(t, GlobalContext.Contexts())
}

func TestContextSet_RoundTrip(t *testing.T) {
	pairs := []Context{
		NewContext("world", "nether"),
		NewContext("server-tag", "pvp"),
	}
	set := NewContextSet(pairs...)

	decoded := set.Contexts()
	require.Len(t, decoded, 2)
	assert.ElementsMatch(t, pairs, decoded)
}

func TestContextSet_EscapesDelimiters(t *testing.T) {
	// Values containing the canonical delimiters must survive a round trip.
	tricky := NewContext("key=with,stuff", "value=more,stuff")
	set := NewContextSet(tricky)

	decoded := set.Contexts()
	require.Len(t, decoded, 1)
	assert.Equal(t, tricky, decoded[0])
}

func TestContextSet_Contains(t *testing.T) {
	set := NewContextSet(NewContext("world", "nether"))

	assert.True(t, set.Contains(NewContext("world", "nether")))
	assert.False(t, set.Contains(NewContext("world", "end")))
}
