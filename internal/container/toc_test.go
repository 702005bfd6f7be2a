package container

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tocRecord(header, body int32) []byte {
	rec := make([]byte, tocEntrySize)
	binary.LittleEndian.PutUint32(rec[0:4], uint32(header))
	binary.LittleEndian.PutUint32(rec[4:8], uint32(body))
	return rec
}

func TestParseTOCDropsTrailingZeroes(t *testing.T) {
	var payload []byte
	payload = append(payload, tocRecord(100, 200)...)
	payload = append(payload, tocRecord(300, 400)...)
	payload = append(payload, tocRecord(0, 0)...)
	payload = append(payload, tocRecord(0, 0)...)

	buf := make([]byte, tocBlockOffset)
	buf = append(buf, makeBlock(payload, int64(blockHeaderSize+len(payload)), noNext)...)

	entries, err := ParseTOC(buf)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int32(100), entries[0].HeaderAddr)
	assert.Equal(t, int32(400), entries[1].BodyAddr)
}

func TestParseTOCEmptyPayload(t *testing.T) {
	buf := make([]byte, tocBlockOffset)
	buf = append(buf, makeBlock(nil, blockHeaderSize, noNext)...)

	entries, err := ParseTOC(buf)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntityNameStripsNulls(t *testing.T) {
	meta := make([]byte, 20)
	name := []byte{'F', 0, 'S', 0, 0, 0} // "FS" with embedded/trailing null code units
	payload := append(meta, name...)

	buf := makeBlock(payload, int64(blockHeaderSize+len(payload)), noNext)

	name2, err := EntityName(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "FS", name2)
}
