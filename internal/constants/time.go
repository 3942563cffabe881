package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// ICalDateTimeFormat is the UTC basic format used in calendar documents
	ICalDateTimeFormat = "20060102T150405Z"

	// ICalDateFormat is the date-only value format used for all-day events
	ICalDateFormat = "20060102"

	// ICalLocalDateTimeFormat is a date-time without zone designator
	ICalLocalDateTimeFormat = "20060102T150405"
)
