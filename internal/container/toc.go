package container

import (
	"encoding/binary"
	"unicode/utf16"
)

// tocBlockOffset is the fixed raw offset of the block holding the table of
// contents.
const tocBlockOffset = 16

// tocEntrySize is the size, in bytes, of one TOC record: header_addr (4),
// body_addr (4), 4 reserved bytes.
const tocEntrySize = 12

// TOCEntry is one entity directory record.
type TOCEntry struct {
	// HeaderAddr is the raw offset of the entity's name header.
	HeaderAddr int32
	// BodyAddr is the raw offset of the entity's body.
	BodyAddr int32
}

// IsZero reports whether both addresses are zero, the marker for an unused
// trailing TOC slot.
func (e TOCEntry) IsZero() bool {
	return e.HeaderAddr == 0 && e.BodyAddr == 0
}

// ParseTOC reads the block at tocBlockOffset and splits its payload into
// 12-byte records, dropping trailing zeroed entries. A zero-length payload
// yields an empty sequence, not an error.
func ParseTOC(buf []byte) ([]TOCEntry, error) {
	hdr, err := ReadBlock(buf, tocBlockOffset)
	if err != nil {
		return nil, err
	}
	if hdr.PayloadSize == 0 {
		return nil, nil
	}

	payload := buf[hdr.DataStart : hdr.DataStart+hdr.PayloadSize]
	count := len(payload) / tocEntrySize

	entries := make([]TOCEntry, 0, count)
	for i := 0; i < count; i++ {
		rec := payload[i*tocEntrySize : (i+1)*tocEntrySize]
		entries = append(entries, TOCEntry{
			HeaderAddr: int32(binary.LittleEndian.Uint32(rec[0:4])),
			BodyAddr:   int32(binary.LittleEndian.Uint32(rec[4:8])),
		})
	}

	// Drop trailing zeroed entries.
	for len(entries) > 0 && entries[len(entries)-1].IsZero() {
		entries = entries[:len(entries)-1]
	}

	return entries, nil
}

// EntityName decodes an entity's display name from the header block at
// rawOffset: 20 bytes of unspecified metadata followed by a UTF-16LE
// string. Null code units are stripped.
func EntityName(buf []byte, rawOffset int64) (string, error) {
	data, err := ReadEntityFull(buf, rawOffset)
	if err != nil {
		return "", err
	}
	if len(data) <= 20 {
		return "", nil
	}

	raw := data[20:]
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u := uint16(raw[i]) | uint16(raw[i+1])<<8
		if u == 0 {
			continue
		}
		units = append(units, u)
	}

	return string(utf16.Decode(units)), nil
}
