package domain

import "time"

// DiagnosticStatus is the pass or fail outcome of one environment check.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticItem is the outcome of one environment check. Fixable marks
// checks the app can repair itself, such as creating the output
// directory or downloading the configured model.
type DiagnosticItem struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  DiagnosticStatus `json:"status"`
	Message string           `json:"message"`
	Hint    string           `json:"hint,omitempty"`
	Fixable bool             `json:"fixable,omitempty"`
}

// DiagnosticReport is the full set of environment checks shown in the
// diagnostics panel and by the doctor command.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}

// Append records check results and raises HasFailures when any failed.
func (r *DiagnosticReport) Append(items ...DiagnosticItem) {
	for _, item := range items {
		if item.Status == DiagnosticStatusFail {
			r.HasFailures = true
		}
	}

	r.Items = append(r.Items, items...)
}
