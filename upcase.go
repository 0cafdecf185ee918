package exfat

import (
	"encoding/binary"
	"io"

	"github.com/aligator/exfat/checkpoint"
)

// upCaseCompressionMark starts an identity run in a compressed up-case table.
// It is followed by the number of characters mapping to themselves.
const upCaseCompressionMark = 0xFFFF

const upCaseTableSize = 1 << 16

// UpCaseTable maps UTF-16 code units to their upper-case form.
type UpCaseTable struct {
	table [upCaseTableSize]uint16
}

// NewUpCaseTable returns a table upper-casing ASCII letters only.
func NewUpCaseTable() *UpCaseTable {
	t := &UpCaseTable{}
	t.SetDefault()
	return t
}

func (t *UpCaseTable) setIdentity() {
	for i := range t.table {
		t.table[i] = uint16(i)
	}
}

// SetDefault resets the table to ASCII upper-casing.
func (t *UpCaseTable) SetDefault() {
	t.setIdentity()
	for c := 'a'; c <= 'z'; c++ {
		t.table[c] = uint16(c - 'a' + 'A')
	}
}

// Read loads an on-disk table which may use identity-run compression.
// It returns the checksum computed over the raw table bytes.
func (t *UpCaseTable) Read(r io.Reader) (uint32, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, checkpoint.From(err)
	}

	t.setIdentity()
	c := 0
	for i := 0; i+1 < len(raw) && c < len(t.table); i += 2 {
		v := binary.LittleEndian.Uint16(raw[i:])
		if v == upCaseCompressionMark && i+3 < len(raw) {
			i += 2
			c += int(binary.LittleEndian.Uint16(raw[i:]))
			continue
		}
		t.table[c] = v
		c++
	}

	return UpCaseTableChecksum(raw), nil
}

// ToUpper returns the upper-case form of the code unit.
func (t *UpCaseTable) ToUpper(u uint16) uint16 {
	return t.table[u]
}

// UpCaseTableChecksum computes the checksum stored in the up-case table directory entry.
func UpCaseTableChecksum(raw []byte) uint32 {
	var checksum uint32
	for _, b := range raw {
		checksum = (checksum >> 1) | (checksum << 31)
		checksum += uint32(b)
	}
	return checksum
}

// compressedDefaultUpCaseTable returns the on-disk, compressed form of the ASCII table.
func compressedDefaultUpCaseTable() []byte {
	var units []uint16
	units = append(units, upCaseCompressionMark, 'a')
	for c := uint16('a'); c <= 'z'; c++ {
		units = append(units, c-'a'+'A')
	}
	units = append(units, upCaseCompressionMark, uint16(upCaseTableSize-('z'+1)))

	raw := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(raw[2*i:], u)
	}
	return raw
}
