package dispatch

import "context"

type progressKey struct{}

// ProgressFunc receives step updates pushed by a running work function.
type ProgressFunc func(step, maxStep int)

// ContextWithProgress attaches a progress reporter to the context handed to
// a work function. The engine installs one per run; work functions only need
// ReportProgress.
func ContextWithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress publishes step/maxStep from inside a work function. It is a
// no-op when the context carries no reporter, so work functions stay usable
// outside the engine.
func ReportProgress(ctx context.Context, step, maxStep int) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok {
		fn(step, maxStep)
	}
}
