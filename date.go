package exfat

import (
	"time"
)

// Timestamp is an on-disk exFAT time: a packed 32-bit stamp, a 10ms increment and a UTC offset.
//
// The packed stamp is laid out like the FAT date and time words next to each other
// (bit 0 is the LSB):
//
//	Bits  0–4:  2-second count, 0–29 (0 – 58 seconds)
//	Bits  5–10: minutes, 0–59
//	Bits 11–15: hours, 0–23
//	Bits 16–20: day of month, 1–31
//	Bits 21–24: month of year, 1–12
//	Bits 25–31: count of years from 1980, 0–127 (1980–2107)
//
// TenMs adds 0–199 units of 10 milliseconds, which also carries the odd second.
// UTCOffset has bit 7 set when valid, the low 7 bits are a signed count of 15 minutes.
type Timestamp struct {
	Stamp     uint32
	TenMs     uint8
	UTCOffset uint8
}

const utcOffsetValid = 0x80

// NewTimestamp encodes t including its zone offset.
// Times outside of 1980–2107 are clamped to the nearest representable one.
func NewTimestamp(t time.Time) Timestamp {
	_, offset := t.Zone()

	switch {
	case t.Year() < 1980:
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, t.Location())
	case t.Year() > 2107:
		t = time.Date(2107, 12, 31, 23, 59, 59, 990*int(time.Millisecond), t.Location())
	}

	stamp := uint32(t.Year()-1980)<<25 |
		uint32(t.Month())<<21 |
		uint32(t.Day())<<16 |
		uint32(t.Hour())<<11 |
		uint32(t.Minute())<<5 |
		uint32(t.Second()>>1)
	tenMs := uint8(t.Nanosecond()/int(10*time.Millisecond) + t.Second()%2*100)

	return Timestamp{
		Stamp:     stamp,
		TenMs:     tenMs,
		UTCOffset: MakeUTCOffset(offset),
	}
}

// Time decodes the timestamp. Without a valid UTC offset the time is treated as local time.
//
// As value 0 for day and month is invalid, time.Time{} is returned in that case
// to be compatible with time.Time.IsZero().
func (ts Timestamp) Time() time.Time {
	twoSeconds := int(ts.Stamp & 0x1F)
	minute := int(ts.Stamp >> 5 & 0x3F)
	hour := int(ts.Stamp >> 11 & 0x1F)
	day := int(ts.Stamp >> 16 & 0x1F)
	month := int(ts.Stamp >> 21 & 0x0F)
	year := int(ts.Stamp >> 25 & 0x7F)

	if day == 0 || month == 0 {
		return time.Time{}
	}

	loc := time.Local
	if offset, ok := ParseUTCOffset(ts.UTCOffset); ok {
		loc = time.FixedZone("", offset)
	}

	seconds := twoSeconds*2 + int(ts.TenMs)/100
	nanos := int(ts.TenMs) % 100 * int(10*time.Millisecond)
	return time.Date(1980+year, time.Month(month), day, hour, minute, seconds, nanos, loc)
}

// ParseUTCOffset decodes an offset byte into seconds east of UTC.
// ok is false if the offset is not marked as valid.
func ParseUTCOffset(b uint8) (seconds int, ok bool) {
	if b&utcOffsetValid == 0 {
		return 0, false
	}
	quarters := int(b) - 0x80
	if b >= 0xD0 {
		quarters = int(b) - 0x100
	}
	return quarters * 15 * 60, true
}

// MakeUTCOffset encodes seconds east of UTC as a valid offset byte, rounded down to 15 minutes.
// Offsets beyond the encodable -12h..+15h45 range are clamped.
func MakeUTCOffset(seconds int) uint8 {
	quarters := seconds / (15 * 60)
	switch {
	case quarters < -48:
		quarters = -48
	case quarters > 63:
		quarters = 63
	}
	if quarters < 0 {
		return uint8(0x100 + quarters)
	}
	return uint8(0x80 + quarters)
}
