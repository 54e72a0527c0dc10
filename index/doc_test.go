package index

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleDocReader_ReadBlock(t *testing.T) {
	r := NewSingleDocReader(1234, []uint32{6, 5, 4, 3, 2, 1})
	require.Equal(t, 1, r.NumDocs())

	block, err := r.ReadBlock()
	require.NoError(t, err)
	require.Equal(t, []Value{
		{Term: 1, DocID: 1234},
		{Term: 2, DocID: 1234},
		{Term: 3, DocID: 1234},
		{Term: 4, DocID: 1234},
		{Term: 5, DocID: 1234},
		{Term: 6, DocID: 1234},
	}, block)

	_, err = r.ReadBlock()
	require.Equal(t, io.EOF, err)
}
