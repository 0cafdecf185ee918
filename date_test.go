package exfat

import (
	"testing"
	"time"
)

func TestNewTimestamp(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want Timestamp
	}{
		{
			name: "even second",
			t:    time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC),
			want: Timestamp{Stamp: 41<<25 | 3<<21 | 14<<16 | 15<<11 | 9<<5 | 13, TenMs: 0, UTCOffset: 0x80},
		},
		{
			name: "odd second and milliseconds",
			t:    time.Date(2021, 3, 14, 15, 9, 27, 500*int(time.Millisecond), time.UTC),
			want: Timestamp{Stamp: 41<<25 | 3<<21 | 14<<16 | 15<<11 | 9<<5 | 13, TenMs: 150, UTCOffset: 0x80},
		},
		{
			name: "positive offset",
			t:    time.Date(2000, 1, 1, 0, 0, 0, 0, time.FixedZone("", 2*3600)),
			want: Timestamp{Stamp: 20<<25 | 1<<21 | 1<<16, UTCOffset: 0x88},
		},
		{
			name: "negative offset",
			t:    time.Date(2000, 1, 1, 0, 0, 0, 0, time.FixedZone("", -3600)),
			want: Timestamp{Stamp: 20<<25 | 1<<21 | 1<<16, UTCOffset: 0xFC},
		},
		{
			name: "before 1980 is clamped",
			t:    time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			want: Timestamp{Stamp: 1<<21 | 1<<16, UTCOffset: 0x80},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewTimestamp(tt.t); got != tt.want {
				t.Errorf("NewTimestamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTimestamp_Time(t *testing.T) {
	tests := []struct {
		name     string
		ts       Timestamp
		want     time.Time
		wantZero bool
	}{
		{
			name:     "zero day and month",
			ts:       Timestamp{},
			wantZero: true,
		},
		{
			name: "odd second from 10ms field",
			ts:   Timestamp{Stamp: 41<<25 | 3<<21 | 14<<16 | 15<<11 | 9<<5 | 13, TenMs: 150, UTCOffset: 0x80},
			want: time.Date(2021, 3, 14, 15, 9, 27, 500*int(time.Millisecond), time.UTC),
		},
		{
			name: "negative offset",
			ts:   Timestamp{Stamp: 20<<25 | 1<<21 | 1<<16, UTCOffset: 0xFC},
			want: time.Date(2000, 1, 1, 1, 0, 0, 0, time.UTC),
		},
		{
			name: "no offset is local time",
			ts:   Timestamp{Stamp: 20<<25 | 1<<21 | 1<<16},
			want: time.Date(2000, 1, 1, 0, 0, 0, 0, time.Local),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ts.Time()
			if tt.wantZero {
				if !got.IsZero() {
					t.Errorf("Time() = %v, want zero time", got)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("Time() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimestamp_roundTrip(t *testing.T) {
	in := time.Date(2107, 12, 31, 23, 59, 59, 990*int(time.Millisecond), time.FixedZone("", 5*3600+45*60))
	if got := NewTimestamp(in).Time(); !got.Equal(in) {
		t.Errorf("NewTimestamp(%v).Time() = %v", in, got)
	}
}

func TestParseUTCOffset(t *testing.T) {
	tests := []struct {
		name   string
		b      uint8
		want   int
		wantOk bool
	}{
		{name: "not valid", b: 0x04, wantOk: false},
		{name: "utc", b: 0x80, want: 0, wantOk: true},
		{name: "plus one hour", b: 0x84, want: 3600, wantOk: true},
		{name: "minus one hour", b: 0xFC, want: -3600, wantOk: true},
		{name: "minus twelve hours", b: 0xD0, want: -12 * 3600, wantOk: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseUTCOffset(tt.b)
			if ok != tt.wantOk {
				t.Fatalf("ParseUTCOffset() ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("ParseUTCOffset() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMakeUTCOffset(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    uint8
	}{
		{name: "utc", seconds: 0, want: 0x80},
		{name: "plus five hours forty five", seconds: 5*3600 + 45*60, want: 0x80 + 23},
		{name: "minus one hour", seconds: -3600, want: 0xFC},
		{name: "clamped low", seconds: -14 * 3600, want: 0xD0},
		{name: "clamped high", seconds: 17 * 3600, want: 0x80 + 63},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MakeUTCOffset(tt.seconds); got != tt.want {
				t.Errorf("MakeUTCOffset() = %#x, want %#x", got, tt.want)
			}
		})
	}
}
