package gramindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_DistinctTrigrams(t *testing.T) {
	terms := Extract([]byte("abcabc"))
	assert.ElementsMatch(t, []uint32{packTrigram('a', 'b', 'c'), packTrigram('b', 'c', 'a'), packTrigram('c', 'a', 'b')}, terms)
}

func TestExtract_ShortInputHasNoTrigrams(t *testing.T) {
	assert.Empty(t, Extract([]byte("ab")))
	assert.Empty(t, Extract(nil))
}

func TestPackUnpackTrigram_Roundtrip(t *testing.T) {
	got := unpackTrigram(packTrigram('x', 'y', 'z'))
	assert.Equal(t, [3]byte{'x', 'y', 'z'}, got)
}
