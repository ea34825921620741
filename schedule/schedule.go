// Package schedule parses and renders the scheduling mini-language embedded
// in "Stop after" / "Terminate after" resource tags. A tag value looks like
// "2024-12-31", "On Weekends", or either of those followed by a warning
// marker such as "2024-12-31 (Nagbot: Warned on 2024-12-27)".
package schedule

import (
	"regexp"
	"time"
)

// DateLayout is the date format used everywhere in tag values.
const DateLayout = "2006-01-02"

var (
	expiryRegex  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
	weekendRegex = regexp.MustCompile(`(?i)^On Weekends`)
	warningRegex = regexp.MustCompile(`\(Nagbot: Warned on (\d{4}-\d{2}-\d{2})\)$`)
)

// Tag is the parsed form of a schedule tag value. The zero value means "no
// schedule and never warned", which the lifecycle policy treats as due now.
type Tag struct {
	ExpiryDate  *time.Time
	OnWeekends  bool
	WarningDate *time.Time
}

// ParseDate parses a YYYY-MM-DD token. Returns false if the string is not a
// valid date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Parse extracts a Tag from a raw tag value. It never fails: malformed or
// free-text input yields the zero Tag so that untagged resources surface in
// the audit instead of being silently skipped.
func Parse(raw string) Tag {
	var tag Tag

	if match := expiryRegex.FindStringSubmatch(raw); match != nil {
		if date, ok := ParseDate(match[1]); ok {
			tag.ExpiryDate = &date
		}
	}

	if weekendRegex.MatchString(raw) {
		tag.OnWeekends = true
	}

	if match := warningRegex.FindStringSubmatch(raw); match != nil {
		if date, ok := ParseDate(match[1]); ok {
			tag.WarningDate = &date
		}
	}

	return tag
}

// String renders the canonical tag value: "On Weekends" wins over an expiry
// date, and the warning marker is appended when present. This is the form
// written back to the cloud tag.
func (t Tag) String() string {
	var result string
	switch {
	case t.OnWeekends:
		result = "On Weekends"
	case t.ExpiryDate != nil:
		result = FormatDate(*t.ExpiryDate)
	}

	if t.WarningDate != nil {
		result += " (Nagbot: Warned on " + FormatDate(*t.WarningDate) + ")"
	}
	return result
}

// AddWarning parses raw and records today as the warning date, then renders
// the canonical form. When replace is false and a warning is already present
// the existing warning date is kept, so repeated notify runs do not reset the
// warning clock.
func AddWarning(raw string, today time.Time, replace bool) string {
	tag := Parse(raw)
	if tag.WarningDate == nil || replace {
		date := today
		tag.WarningDate = &date
	}
	return tag.String()
}
