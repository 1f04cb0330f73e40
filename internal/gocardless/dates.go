package gocardless

import (
	"fmt"
	"net/mail"
	"time"
)

// hostZone is the host's UTC offset at process start, applied to every
// parsed value. Using one fixed offset for the whole run avoids a double
// DST correction between values that straddle a clock change.
var hostZone = fixedHostZone()

func fixedHostZone() *time.Location {
	_, offset := time.Now().Zone()
	return time.FixedZone("host", offset)
}

// timestampLayouts are the point-in-time formats the API emits.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseTimestamp parses an ISO 8601 UTC datetime and normalizes it to the
// host's fixed UTC offset. A malformed value is a fatal parse error; callers
// abort the refresh rather than book a wrong timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(hostZone), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q", s)
}

// ParseDate parses an ISO 8601 date-only value (e.g. a charge date) at
// midnight in the host's fixed UTC offset.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, hostZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed date %q", s)
	}
	return t, nil
}

// ParseRFC5322 parses an RFC 5322 timestamp. The API uses this format only
// for the rate-limit reset header.
func ParseRFC5322(s string) (time.Time, error) {
	t, err := mail.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed RFC 5322 timestamp %q: %w", s, err)
	}
	return t.In(hostZone), nil
}

// FormatTimestamp renders a point in time the way the API's created_at[gte]
// style filters expect it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// FormatDate renders a date-only value for charge_date[gte] style filters.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
