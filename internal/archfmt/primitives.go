// Package archfmt implements the binary primitives and on-disk layout
// conventions the rest of jidac builds on: little-endian integer codecs,
// decimal-date conversion, the JIDAC segment naming scheme, wildcard
// matching, and the tagged attribute encoding.
package archfmt

import (
	"encoding/binary"
	"fmt"
	"time"
)

// PutUint32 and the other Put/Get helpers below exist because every wire
// payload in §6.3 is defined in terms of raw little-endian integers, not a
// struct tag scheme — there is no corpus dependency for this, it's the
// spec's literal byte contract.

func PutUint32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

func GetUint32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

func PutUint64(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}

func GetUint64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

func PutInt32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func GetInt32(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

func PutInt64(dst []byte, v int64) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}

func GetInt64(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// DecimalDate is a YYYYMMDDHHMMSS timestamp stored as a 64-bit decimal
// integer, per §3 and §6.3. 0 means "no date" / deletion marker.
type DecimalDate uint64

// ToTime converts a decimal date to UTC. DecimalDate(0) maps to the zero
// time.
func (d DecimalDate) ToTime() time.Time {
	if d == 0 {
		return time.Time{}
	}
	n := uint64(d)
	sec := n % 100
	n /= 100
	min := n % 100
	n /= 100
	hour := n % 100
	n /= 100
	day := n % 100
	n /= 100
	month := n % 100
	n /= 100
	year := n
	return time.Date(int(year), time.Month(month), int(day), int(hour), int(min), int(sec), 0, time.UTC)
}

// DateFromTime converts a UTC time to its decimal-date representation.
func DateFromTime(t time.Time) DecimalDate {
	t = t.UTC()
	v := uint64(t.Year())
	v = v*100 + uint64(t.Month())
	v = v*100 + uint64(t.Day())
	v = v*100 + uint64(t.Hour())
	v = v*100 + uint64(t.Minute())
	v = v*100 + uint64(t.Second())
	return DecimalDate(v)
}

// String renders the date the way diagnostics and -summary output want it.
func (d DecimalDate) String() string {
	if d == 0 {
		return "0 (deleted)"
	}
	return fmt.Sprintf("%014d", uint64(d))
}
