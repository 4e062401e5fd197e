package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValueList is one metric observation as delivered by the metrics daemon.
// Values are ordered by the data set of Type (see DSNames).
type ValueList struct {
	Host           string        `json:"host"`
	Plugin         string        `json:"plugin"`
	PluginInstance string        `json:"plugin_instance"`
	Type           string        `json:"type"`
	TypeInstance   string        `json:"type_instance"`
	Values         []float64     `json:"values"`
	DSNames        []string      `json:"dsnames,omitempty"`
	Time           time.Time     `json:"time"`
	Interval       time.Duration `json:"interval"`
}

// Severity of a notification.
type Severity int

const (
	SeverityFailure Severity = 1
	SeverityWarning Severity = 2
	SeverityOkay    Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityFailure:
		return "failure"
	case SeverityWarning:
		return "warning"
	case SeverityOkay:
		return "okay"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity accepts the textual names used by collectd.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "failure":
		return SeverityFailure, nil
	case "warning":
		return SeverityWarning, nil
	case "okay":
		return SeverityOkay, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

// Notification is an asynchronous fault/state message.
type Notification struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
	Severity       Severity
	Time           time.Time
	Message        string
}
