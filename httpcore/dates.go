package httpcore

import (
	"errors"
	"time"
)

// IMF-fixdate is the only format this library ever emits; RFC 850 and
// asctime are accepted on parse per spec.md §6.
const (
	imfFixdateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"
	rfc850Layout     = "Monday, 02-Jan-06 15:04:05 GMT"
	asctimeLayout    = "Mon Jan _2 15:04:05 2006"
)

// FormatDate renders t as an IMF-fixdate string in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(imfFixdateLayout)
}

// ParseDate parses s as IMF-fixdate, RFC 850, or asctime, in that order.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{imfFixdateLayout, rfc850Layout, asctimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("httpcore: invalid HTTP date")
}
