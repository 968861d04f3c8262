package querylog

import "fmt"

// Severity is a syslog-style log level. Lower is more severe.
type Severity int

const (
	SeverityEmergency Severity = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

// SeverityNone marks a log call that carried no severity.
const SeverityNone Severity = -1

var severityNames = [...]string{
	"emergency", "alert", "critical", "error", "warning", "notice", "info", "debug",
}

func (s Severity) String() string {
	if s == SeverityNone {
		return "none"
	}
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Source is the application file and line that issued a query.
type Source struct {
	File string
	Line int
}

// Entry is one captured log record.
type Entry struct {
	Severity Severity
	Message  string
	Source   *Source
}
