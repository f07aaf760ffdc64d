package booking

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// ProgressEvent is one entry of the session's append-only status stream.
// Events are never mutated after emission; consumers must render them in
// arrival order.
type ProgressEvent struct {
	At       time.Time
	Stage    Stage
	Severity Severity
	Message  string
}

// Reporter receives ordered progress events. It has no control authority
// over the session.
type Reporter interface {
	Report(ProgressEvent)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ProgressEvent)

func (f ReporterFunc) Report(e ProgressEvent) { f(e) }

// NopReporter discards all events.
var NopReporter Reporter = ReporterFunc(func(ProgressEvent) {})

// MultiReporter fans one event stream out to several consumers, preserving
// order for each.
func MultiReporter(rs ...Reporter) Reporter {
	return ReporterFunc(func(e ProgressEvent) {
		for _, r := range rs {
			r.Report(e)
		}
	})
}
