package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeBlock builds one 31-byte header followed by payload bytes.
func makeBlock(payload []byte, blockSize int64, next int64) []byte {
	header := make([]byte, blockHeaderSize)
	header[0], header[1] = '\r', '\n'
	copy(header[2:10], []byte(hex8(int64(len(payload)))))
	header[10] = ' '
	copy(header[11:19], []byte(hex8(blockSize)))
	header[19] = ' '
	copy(header[20:28], []byte(hex8(next)))
	header[28] = ' '
	header[29], header[30] = '\r', '\n'
	return append(header, payload...)
}

func hex8(v int64) string {
	const digits = "0123456789ABCDEF"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = digits[v&0xF]
		v >>= 4
	}
	return string(b)
}

func TestReadBlockSingle(t *testing.T) {
	payload := []byte("hello world")
	buf := makeBlock(payload, int64(blockHeaderSize+len(payload)), noNext)

	hdr, err := ReadBlock(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), hdr.PayloadSize)
	assert.False(t, hdr.HasNext())
	assert.Equal(t, payload, buf[hdr.DataStart:hdr.DataStart+hdr.PayloadSize])
}

func TestReadBlockMalformedHex(t *testing.T) {
	buf := makeBlock([]byte("x"), int64(blockHeaderSize+1), noNext)
	buf[2] = 'Z' // not a hex digit
	_, err := ReadBlock(buf, 0)
	require.Error(t, err)
}

func TestReadBlockPayloadExceedsBlockSize(t *testing.T) {
	buf := makeBlock([]byte("0123456789"), blockHeaderSize, noNext) // block_size too small
	_, err := ReadBlock(buf, 0)
	require.Error(t, err)
}

func TestReadBlockTruncatedBuffer(t *testing.T) {
	buf := makeBlock([]byte("hello"), int64(blockHeaderSize+5), noNext)
	_, err := ReadBlock(buf[:blockHeaderSize+2], 0)
	require.Error(t, err)
}

func TestReadEntityFullZeroPayload(t *testing.T) {
	buf := makeBlock(nil, blockHeaderSize, noNext)
	data, err := ReadEntityFull(buf, 0)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadEntityFullChain(t *testing.T) {
	// blockA at offset 0, next points to blockB which starts right after it.
	blockBPayload := []byte("-tail")
	blockB := makeBlock(blockBPayload, int64(blockHeaderSize+len(blockBPayload)), noNext)
	blockAPayload := []byte("head")
	blockA := makeBlock(blockAPayload, int64(blockHeaderSize+len(blockAPayload)), 0) // next patched below

	bOffset := int64(len(blockA))
	copy(blockA[20:28], []byte(hex8(bOffset)))

	fullBuf := append(append([]byte{}, blockA...), blockB...)

	data, err := ReadEntityFull(fullBuf, 0)
	require.NoError(t, err)
	assert.Equal(t, "head-tail", string(data))
}

func TestReadEntityFullCycleDetected(t *testing.T) {
	// A block whose next_raw points back at itself (offset 0, not increasing).
	buf := makeBlock([]byte("x"), int64(blockHeaderSize+1), 0)
	_, err := ReadEntityFull(buf, 0)
	require.Error(t, err)
}

func TestReadBlockTerminatorSentinel(t *testing.T) {
	buf := makeBlock([]byte("only"), int64(blockHeaderSize+4), noNext)
	hdr, err := ReadBlock(buf, 0)
	require.NoError(t, err)
	assert.False(t, hdr.HasNext())
}
