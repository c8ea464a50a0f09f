package gpustate

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gpustate/backend"
)

// nopHandler drops every record. Enabled reports false, so slog never
// formats attributes for a silent logger.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr holds the package logger used by devices without WithLogger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger replaces the package logger. gpustate is silent until it is
// called; nil makes it silent again. It may be called from any goroutine.
//
// Devices created without [WithLogger] use the new logger from their next
// log call on. Backends receive the device logger once, when the device is
// created.
//
// Log levels used by gpustate:
//   - [slog.LevelDebug]: state changes applied or elided, unit allocation
//   - [slog.LevelInfo]: device lifecycle (open, close, backend selection)
//   - [slog.LevelWarn]: non-fatal issues (teardown failures, unit exhaustion)
//
// To trace every elided state change:
//
//	gpustate.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a backend if it implements the
// loggerSetter interface. It reports whether the backend accepted it.
func propagateLogger(b backend.Backend, l *slog.Logger) bool {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
		return true
	}
	return false
}
