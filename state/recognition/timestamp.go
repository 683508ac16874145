package recognition

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a consensus timestamp as served by the mirror node: "<seconds>.<nanoseconds>".
type Timestamp string

func (t Timestamp) parse() (sec, nsec int64, ok bool) {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return 0, 0, false
	}
	whole, frac, _ := strings.Cut(s, ".")
	if !digits(whole) || (frac != "" && !digits(frac)) {
		return 0, 0, false
	}
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if frac == "" {
		return sec, 0, true
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac = frac + strings.Repeat("0", 9-len(frac))
	nsec, err = strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return sec, nsec, true
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// maxUnixSec keeps sec*1000 inside an int64.
const maxUnixSec = math.MaxInt64/1000 - 1

// Compare returns -1, 0 or 1. Timestamps are compared numerically when both parse and
// as plain strings otherwise.
func (t Timestamp) Compare(other Timestamp) int {
	as, an, aok := t.parse()
	bs, bn, bok := other.parse()
	if !aok || !bok {
		return strings.Compare(string(t), string(other))
	}
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	case an < bn:
		return -1
	case an > bn:
		return 1
	}
	return 0
}

// UnixMilli converts to milliseconds since the epoch. RFC3339 strings are accepted too,
// anything else, including seconds too large for milliseconds, is 0.
func (t Timestamp) UnixMilli() int64 {
	if sec, nsec, ok := t.parse(); ok {
		if sec > maxUnixSec {
			return 0
		}
		return sec*1000 + nsec/int64(time.Millisecond)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, string(t)); err == nil {
		return parsed.UnixMilli()
	}
	return 0
}
