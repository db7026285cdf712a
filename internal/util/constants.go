package util

const (
	// TimestampFormat is the layout existing game databases already hold, so
	// old and new rows sort and parse alike.
	TimestampFormat = "2006-01-02 15:04:05.000000"
	ClockFormat     = "15:04:05"
)

// Accepted layouts for stored timestamps, most specific first.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

const (
	SessionCookie = "qc_session"
	AnonymousUser = "anonymous"
)
