package logger

import "wallet_session/internal/app/port"

// slogAdapter implements port.Logger on top of the package-level functions,
// so services receive whatever backend main configured.
type slogAdapter struct {
	args []any
}

// NewComponentLogger returns an adapter that tags every record with component=name.
func NewComponentLogger(name string) port.Logger {
	return &slogAdapter{args: []any{"component", name}}
}

func (a *slogAdapter) with(args []any) []any {
	if len(a.args) == 0 {
		return args
	}
	out := make([]any, 0, len(a.args)+len(args))
	out = append(out, a.args...)
	return append(out, args...)
}

// Info logs an informational message.
func (a *slogAdapter) Info(msg string, args ...any) {
	Info(msg, a.with(args)...)
}

// Debug logs a debug message.
func (a *slogAdapter) Debug(msg string, args ...any) {
	Debug(msg, a.with(args)...)
}

// Warn logs a warning.
func (a *slogAdapter) Warn(msg string, args ...any) {
	Warn(msg, a.with(args)...)
}

// Error logs an error.
func (a *slogAdapter) Error(msg string, args ...any) {
	Error(msg, a.with(args)...)
}

type nopLogger struct{}

// NewNop returns a port.Logger that discards everything.
func NewNop() port.Logger { return nopLogger{} }

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
