// Package container decodes the .hbk block-linked file format: a custom
// container whose block headers are ASCII hex and whose entities may span
// chains of blocks linked by a "next" offset.
package container

import (
	"fmt"
	"strconv"

	xerrors "github.com/hawkxtreme/mini-ai-1c-help/internal/errors"
)

const (
	// blockHeaderSize is the fixed size, in bytes, of one block header:
	// "\r\n" payload_hex8 " " block_hex8 " " next_hex8 " \r\n".
	blockHeaderSize = 31

	// noNext is the sentinel raw offset meaning "end of chain".
	noNext int64 = 0x7FFFFFFF

	// maxEntitySize bounds concatenated chain output to guard against
	// pathological or adversarial files exhausting memory.
	maxEntitySize = 1 << 30 // 1 GiB
)

// BlockHeader is the decoded form of the 31-byte header at a raw offset.
type BlockHeader struct {
	PayloadSize int64
	BlockSize   int64
	// NextRaw is the raw offset of the next block in the chain, or -1 if
	// this block terminates the chain (its on-disk value was the
	// 0x7FFFFFFF sentinel).
	NextRaw int64
	// DataStart is the raw offset immediately following the header, where
	// the block's payload bytes begin.
	DataStart int64
}

// HasNext reports whether the chain continues past this block.
func (h BlockHeader) HasNext() bool {
	return h.NextRaw >= 0
}

// ReadBlock parses the 31-byte header at rawOffset and validates that its
// payload fits within buf.
func ReadBlock(buf []byte, rawOffset int64) (BlockHeader, error) {
	if rawOffset < 0 || rawOffset+blockHeaderSize > int64(len(buf)) {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("header out of bounds (buffer length %d)", len(buf)))
	}

	header := buf[rawOffset : rawOffset+blockHeaderSize]

	if header[0] != '\r' || header[1] != '\n' || header[29] != '\r' || header[30] != '\n' {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("missing CRLF framing"))
	}
	if header[10] != ' ' || header[19] != ' ' || header[28] != ' ' {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("missing field separators"))
	}

	payloadSize, err := parseHex8(header[2:10])
	if err != nil {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("payload_size: %w", err))
	}
	blockSize, err := parseHex8(header[11:19])
	if err != nil {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("block_size: %w", err))
	}
	nextRaw, err := parseHex8(header[20:28])
	if err != nil {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("next_raw: %w", err))
	}

	dataStart := rawOffset + blockHeaderSize
	if dataStart+payloadSize > int64(len(buf)) {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("payload_size %d exceeds buffer", payloadSize))
	}
	if payloadSize > blockSize-blockHeaderSize {
		return BlockHeader{}, xerrors.NewContainerError("read_block", "", rawOffset,
			fmt.Errorf("payload_size %d exceeds block_size-%d %d", payloadSize, blockHeaderSize, blockSize-blockHeaderSize))
	}

	next := int64(-1)
	if nextRaw != noNext {
		next = nextRaw
	}

	return BlockHeader{
		PayloadSize: payloadSize,
		BlockSize:   blockSize,
		NextRaw:     next,
		DataStart:   dataStart,
	}, nil
}

func parseHex8(field []byte) (int64, error) {
	v, err := strconv.ParseUint(string(field), 16, 32)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// ReadEntityFull walks the next_raw chain starting at rawOffset and
// concatenates the payload_size slice from each block. Offsets visited
// must be strictly increasing (cycle detection); concatenated output is
// bounded by maxEntitySize.
func ReadEntityFull(buf []byte, rawOffset int64) ([]byte, error) {
	var out []byte
	offset := rawOffset
	prev := int64(-1)

	for {
		if offset <= prev {
			return nil, xerrors.NewContainerError("read_entity_full", "", offset,
				fmt.Errorf("chain cycle or non-increasing offset (previous %d)", prev))
		}
		prev = offset

		hdr, err := ReadBlock(buf, offset)
		if err != nil {
			return nil, err
		}

		if int64(len(out))+hdr.PayloadSize > maxEntitySize {
			return nil, xerrors.NewContainerError("read_entity_full", "", offset,
				fmt.Errorf("entity exceeds %d byte bound", maxEntitySize))
		}

		out = append(out, buf[hdr.DataStart:hdr.DataStart+hdr.PayloadSize]...)

		if !hdr.HasNext() {
			break
		}
		offset = hdr.NextRaw
	}

	return out, nil
}
