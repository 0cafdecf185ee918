package exfat

import (
	"encoding/binary"
	"unicode/utf16"
)

// Field is a little-endian value stored at a fixed byte range of an on-disk structure.
// Width is 1, 2, 4 or 8 for integers; string fields use any even width (UTF-16 code units).
type Field struct {
	Offset int
	Width  int
}

// end returns the first byte after the field.
func (f Field) end() int {
	return f.Offset + f.Width
}

// overlaps reports whether two fields share at least one byte.
func (f Field) overlaps(o Field) bool {
	return f.Offset < o.end() && o.Offset < f.end()
}

// Uint decodes the field from b.
func (f Field) Uint(b []byte) uint64 {
	v := b[f.Offset:f.end()]
	switch f.Width {
	case 1:
		return uint64(v[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(v))
	case 4:
		return uint64(binary.LittleEndian.Uint32(v))
	case 8:
		return binary.LittleEndian.Uint64(v)
	}
	panic("exfat: invalid integer field width")
}

// SetUint encodes value into the field of b, truncating it to the field width.
func (f Field) SetUint(b []byte, value uint64) {
	v := b[f.Offset:f.end()]
	switch f.Width {
	case 1:
		v[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(v, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(v, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(v, value)
	default:
		panic("exfat: invalid integer field width")
	}
}

// Units decodes the field as UTF-16 code units.
func (f Field) Units(b []byte) []uint16 {
	units := make([]uint16, f.Width/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[f.Offset+2*i:])
	}
	return units
}

// SetUnits encodes units into the field, padding with zeros. Extra units are dropped.
func (f Field) SetUnits(b []byte, units []uint16) {
	for i := 0; i < f.Width/2; i++ {
		var u uint16
		if i < len(units) {
			u = units[i]
		}
		binary.LittleEndian.PutUint16(b[f.Offset+2*i:], u)
	}
}

// String decodes at most n UTF-16 code units of the field.
func (f Field) String(b []byte, n int) string {
	units := f.Units(b)
	if n < len(units) {
		units = units[:n]
	}
	return string(utf16.Decode(units))
}
