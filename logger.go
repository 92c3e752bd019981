package hub

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/hub/registry"
)

// nopHandler drops every record. Enabled reports false, so disabled log
// calls skip attribute formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger sets the logger for the hub, its registries and the native
// layer. The hub is silent until SetLogger is called; nil silences it again.
// Safe for concurrent use.
//
// Levels:
//   - [slog.LevelDebug]: register, unregister and rejected lookups
//   - [slog.LevelInfo]: hub init and teardown, adapter and device selection
//   - [slog.LevelWarn]: double free, duplicate registration, epoch wrap,
//     objects left at teardown
//
// Example:
//
//	hub.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	registry.SetLogger(l)
}

// Logger returns the logger set by SetLogger. The native package logs
// through it.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
