package httpcore

import (
	"strconv"
	"strings"
)

// ByteRange is a single parsed Range header value, per spec.md §4.1.
// Comma-separated lists and a missing "bytes=" prefix both decode to an
// absent range rather than an error — only a range that *looks* like a
// single byte-range-spec but is malformed (e.g. "bytes=-0") is an error.
type ByteRange struct {
	Present bool
	Suffix  bool  // true: "bytes=-N" — the last N bytes
	Start   int64 // valid when Present && !Suffix
	HasLen  bool  // true: "bytes=A-B" (end known); false: "bytes=A-" (open)
	Len     int64 // valid when (Present && !Suffix && HasLen) or (Present && Suffix)
}

// ParseRange parses the Range header value h. An empty string or a value
// this library treats as "no range" (comma lists, missing "bytes=")
// returns an absent ByteRange with a nil error. A value that declares a
// single range but is malformed returns a non-nil error.
func ParseRange(h string) (ByteRange, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return ByteRange{}, nil
	}
	const prefix = "bytes="
	if !strings.HasPrefix(h, prefix) {
		return ByteRange{}, nil
	}
	spec := h[len(prefix):]
	if strings.Contains(spec, ",") {
		// Multi-range requests are out of scope (spec.md §1 Non-goals);
		// treat as absent rather than erroring.
		return ByteRange{}, nil
	}

	if strings.HasPrefix(spec, "-") {
		n, err := strconv.ParseInt(spec[1:], 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{}, ErrMalformedRequest
		}
		return ByteRange{Present: true, Suffix: true, Len: n}, nil
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return ByteRange{}, ErrMalformedRequest
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, ErrMalformedRequest
	}
	if parts[1] == "" {
		return ByteRange{Present: true, Start: start, HasLen: false}, nil
	}
	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || end < start {
		return ByteRange{}, ErrMalformedRequest
	}
	return ByteRange{Present: true, Start: start, HasLen: true, Len: end - start + 1}, nil
}

// Resolve computes the concrete [start, start+length) window of a range
// against a resource of the given total size. ok is false when the range
// cannot be satisfied (416).
func (r ByteRange) Resolve(size int64) (start, length int64, ok bool) {
	if !r.Present {
		return 0, size, true
	}
	if r.Suffix {
		if r.Len >= size {
			return 0, size, true
		}
		return size - r.Len, r.Len, true
	}
	if r.Start >= size {
		return 0, 0, false
	}
	if !r.HasLen {
		return r.Start, size - r.Start, true
	}
	end := r.Start + r.Len
	if end > size {
		end = size
	}
	return r.Start, end - r.Start, true
}
