// Package ziparchive streams local-file-header entries out of an
// in-memory ZIP byte buffer without consulting the central directory, the
// way the file-storage entity embedded in an .hbk container must be read.
package ziparchive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
)

// localFileHeaderSignature marks the start of one entry ("PK\x03\x04").
const localFileHeaderSignature = 0x04034b50

const (
	CompressionStored  = 0
	CompressionDeflate = 8
)

// localHeaderFixedSize is the size of the local file header up to (but not
// including) the variable-length name and extra fields.
const localHeaderFixedSize = 30

// ErrUnsupportedMethod is returned by Decompress for a compression method
// other than stored or raw DEFLATE; callers skip such entries silently.
var ErrUnsupportedMethod = errors.New("ziparchive: unsupported compression method")

// Entry describes one local-file-header record. CompressedData is a
// zero-copy subrange over the buffer passed to Iterate.
type Entry struct {
	Name              string
	CompressedData    []byte
	CompressionMethod uint16
	UncompressedSize  uint32
}

// Iterate calls yield for each local-file-header entry found in data, in
// order, stopping at the first four-byte word that isn't a local-file-header
// signature (this is where the central directory begins; it is never
// parsed). yield returning false stops iteration early.
func Iterate(data []byte, yield func(Entry) bool) error {
	offset := 0
	for {
		if offset+4 > len(data) {
			return nil
		}
		sig := binary.LittleEndian.Uint32(data[offset : offset+4])
		if sig != localFileHeaderSignature {
			return nil
		}
		if offset+localHeaderFixedSize > len(data) {
			return nil
		}

		method := binary.LittleEndian.Uint16(data[offset+8 : offset+10])
		compressedSize := binary.LittleEndian.Uint32(data[offset+18 : offset+22])
		uncompressedSize := binary.LittleEndian.Uint32(data[offset+22 : offset+26])
		nameLength := binary.LittleEndian.Uint16(data[offset+26 : offset+28])
		extraLength := binary.LittleEndian.Uint16(data[offset+28 : offset+30])

		nameStart := offset + localHeaderFixedSize
		dataStart := nameStart + int(nameLength) + int(extraLength)
		dataEnd := dataStart + int(compressedSize)
		if dataEnd > len(data) {
			return nil
		}

		name := string(data[nameStart : nameStart+int(nameLength)])
		entry := Entry{
			Name:              name,
			CompressedData:    data[dataStart:dataEnd],
			CompressionMethod: method,
			UncompressedSize:  uncompressedSize,
		}

		if !yield(entry) {
			return nil
		}

		offset = dataEnd
	}
}

// Decompress returns the entry's uncompressed bytes. Stored entries are
// returned unchanged; DEFLATE entries are inflated. Any other compression
// method yields ErrUnsupportedMethod, which callers treat as "skip this
// entry", not a hard error.
func Decompress(e Entry) ([]byte, error) {
	switch e.CompressionMethod {
	case CompressionStored:
		return e.CompressedData, nil
	case CompressionDeflate:
		r := flate.NewReader(bytes.NewReader(e.CompressedData))
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, ErrUnsupportedMethod
	}
}
