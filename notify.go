package dispatch

// NotificationSink receives one call per status transition of a run. The
// engine treats the sink as untrusted: errors and panics inside Notify never
// affect the run that triggered them.
type NotificationSink interface {
	Notify(runID string, status Status, message string)
}

// SinkFunc adapts a function to the NotificationSink interface.
type SinkFunc func(runID string, status Status, message string)

func (f SinkFunc) Notify(runID string, status Status, message string) {
	f(runID, status, message)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) Notify(string, Status, string) {}
