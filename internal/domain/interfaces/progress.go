package interfaces

// ProgressEvent is a coarse milestone of a packaging run
type ProgressEvent struct {
	Stage   string
	Message string
}

// ProgressReporter receives milestones in emission order. It is advisory
// and must not block for long.
type ProgressReporter interface {
	Report(event ProgressEvent)
}

// ProgressFunc adapts a function to ProgressReporter
type ProgressFunc func(event ProgressEvent)

// Report calls f(event)
func (f ProgressFunc) Report(event ProgressEvent) {
	f(event)
}

// DiscardProgress ignores every event
var DiscardProgress ProgressReporter = ProgressFunc(func(ProgressEvent) {})
