package store

import (
	"fmt"
	"time"
)

// DateTime is the layout of every stored timestamp. Stored values are UTC.
const DateTime = "2006-01-02 15:04:05"

// AdminZone is the zone admins enter and read maintenance times in.
var AdminZone = time.FixedZone("GMT+8", 8*60*60)

var inputLayouts = []string{
	DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// FormatUTC renders t in the stored layout.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(DateTime)
}

// ParseUTC parses a stored timestamp.
func ParseUTC(s string) (time.Time, error) {
	return time.ParseInLocation(DateTime, s, time.UTC)
}

// AdminToUTC converts an admin-entered GMT+8 wall time to the stored layout.
func AdminToUTC(s string) (string, error) {
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, AdminZone); err == nil {
			return FormatUTC(t), nil
		}
	}
	return "", fmt.Errorf("invalid time %q: want YYYY-MM-DD HH:MM:SS", s)
}

// UTCToAdmin converts a stored timestamp to GMT+8 wall time. Values that do
// not parse are returned unchanged.
func UTCToAdmin(s string) string {
	t, err := ParseUTC(s)
	if err != nil {
		return s
	}
	return t.In(AdminZone).Format(DateTime)
}

// UTCToRFC3339 renders a stored timestamp as RFC 3339. Values that do not
// parse are returned unchanged.
func UTCToRFC3339(s string) string {
	t, err := ParseUTC(s)
	if err != nil {
		return s
	}
	return t.Format(time.RFC3339)
}
