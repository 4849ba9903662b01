package dispatch

import (
	"context"

	"github.com/goliatone/go-logger/glog"
)

// GlogAdapter bridges a go-logger glog.Logger to the engine's Logger
// contract. Construct it with NewGlogAdapter so a nil base degrades to the
// FmtLogger fallback.
type GlogAdapter struct {
	logger glog.Logger
}

// NewGlogAdapter wraps base in the Logger contract.
func NewGlogAdapter(base glog.Logger) Logger {
	if base == nil {
		return NewFmtLogger(nil)
	}
	return GlogAdapter{logger: base}
}

func (l GlogAdapter) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l GlogAdapter) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l GlogAdapter) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l GlogAdapter) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l GlogAdapter) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l GlogAdapter) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l GlogAdapter) WithContext(ctx context.Context) Logger {
	if l.logger == nil {
		return NewFmtLogger(nil).WithContext(ctx)
	}
	return GlogAdapter{logger: l.logger.WithContext(ctx)}
}

func (l GlogAdapter) WithFields(fields map[string]any) Logger {
	if l.logger == nil {
		return NewFmtLogger(nil).WithFields(fields)
	}
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return GlogAdapter{logger: fl.WithFields(fields)}
	}
	return l
}
