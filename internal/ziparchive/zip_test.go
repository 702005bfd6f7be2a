package ziparchive

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localFileHeader(name string, method uint16, data []byte, uncompressedSize uint32) []byte {
	var buf bytes.Buffer
	header := make([]byte, 30)
	binary.LittleEndian.PutUint32(header[0:4], localFileHeaderSignature)
	binary.LittleEndian.PutUint16(header[8:10], method)
	binary.LittleEndian.PutUint32(header[18:22], uint32(len(data)))
	binary.LittleEndian.PutUint32(header[22:26], uncompressedSize)
	binary.LittleEndian.PutUint16(header[26:28], uint16(len(name)))
	binary.LittleEndian.PutUint16(header[28:30], 0)
	buf.Write(header)
	buf.WriteString(name)
	buf.Write(data)
	return buf.Bytes()
}

func deflateBytes(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestIterateStoredEntry(t *testing.T) {
	body := []byte("<h1>A</h1>")
	data := localFileHeader("a.html", CompressionStored, body, uint32(len(body)))

	var entries []Entry
	err := Iterate(data, func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.html", entries[0].Name)

	out, err := Decompress(entries[0])
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestIterateDeflateEntry(t *testing.T) {
	body := []byte("<h1>B</h1>some longer body text to compress")
	compressed := deflateBytes(t, body)
	data := localFileHeader("b.html", CompressionDeflate, compressed, uint32(len(body)))

	var entries []Entry
	require.NoError(t, Iterate(data, func(e Entry) bool {
		entries = append(entries, e)
		return true
	}))
	require.Len(t, entries, 1)

	out, err := Decompress(entries[0])
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestIterateMultipleEntriesAndStopsAtNonSignature(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(localFileHeader("a.html", CompressionStored, []byte("A"), 1))
	buf.Write(localFileHeader("b.html", CompressionStored, []byte("B"), 1))
	// Central directory signature follows; iteration must stop cleanly here.
	cd := make([]byte, 4)
	binary.LittleEndian.PutUint32(cd, 0x02014b50)
	buf.Write(cd)
	buf.WriteString("garbage that must never be yielded")

	var names []string
	require.NoError(t, Iterate(buf.Bytes(), func(e Entry) bool {
		names = append(names, e.Name)
		return true
	}))
	assert.Equal(t, []string{"a.html", "b.html"}, names)
}

func TestDecompressUnsupportedMethodSkipped(t *testing.T) {
	data := localFileHeader("c.bin", 99, []byte("whatever"), 8)

	var entries []Entry
	require.NoError(t, Iterate(data, func(e Entry) bool {
		entries = append(entries, e)
		return true
	}))
	require.Len(t, entries, 1)

	_, err := Decompress(entries[0])
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestIterateEmptyYieldsNothing(t *testing.T) {
	var count int
	require.NoError(t, Iterate(nil, func(Entry) bool {
		count++
		return true
	}))
	assert.Zero(t, count)
}
