package vpn

import (
	"bufio"
	"bytes"
	"strings"
	"time"
)

// Log line markers emitted by the OpenVPN daemon.
const (
	markerCompleted  = "Initialization Sequence Completed"
	markerAuthFailed = "AUTH_FAILED"
)

// timestampLayout matches the prefix OpenVPN puts on every log line,
// e.g. "Tue Aug 30 12:00:00 2026 Initialization Sequence Completed".
const timestampLayout = "Mon Jan 2 15:04:05 2006"

// Event is a single timestamped line from the daemon's log output.
// Lines without a parseable timestamp keep a zero Time and carry the
// whole line in Message.
type Event struct {
	Time    time.Time
	Message string
	Raw     string
}

// Report summarizes a finished daemon run.
type Report struct {
	Events     []Event
	Completed  bool
	AuthFailed bool
	ExitCode   int
}

// ParseEvents splits daemon output into events, one per non-empty line.
func ParseEvents(output []byte) []Event {
	var events []Event

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		events = append(events, parseEvent(line))
	}

	return events
}

// parseEvent extracts the timestamp prefix when present. OpenVPN's
// prefix is five space-separated fields: weekday, month, day, clock, year.
func parseEvent(line string) Event {
	fields := strings.Fields(line)
	if len(fields) >= 5 {
		prefix := strings.Join(fields[:5], " ")
		if ts, err := time.Parse(timestampLayout, prefix); err == nil {
			return Event{
				Time:    ts,
				Message: strings.Join(fields[5:], " "),
				Raw:     line,
			}
		}
	}
	return Event{Message: line, Raw: line}
}

// BuildReport parses output and scans it for the well-known markers.
func BuildReport(output []byte, exitCode int) *Report {
	report := &Report{
		Events:   ParseEvents(output),
		ExitCode: exitCode,
	}
	for _, ev := range report.Events {
		if strings.Contains(ev.Message, markerCompleted) {
			report.Completed = true
		}
		if strings.Contains(ev.Message, markerAuthFailed) {
			report.AuthFailed = true
		}
	}
	return report
}
