package logger

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
)

// Reporter receives error-level log messages for external error tracking.
type Reporter interface {
	Report(level zerolog.Level, msg string)
}

// ReportHook forwards error, fatal and panic events to a Reporter.
type ReportHook struct {
	reporter Reporter
}

// NewReportHook wraps r as a zerolog hook.
func NewReportHook(r Reporter) ReportHook {
	return ReportHook{reporter: r}
}

// Run implements zerolog.Hook.
func (h ReportHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}
	h.reporter.Report(level, msg)
}

// RollbarReporter sends reports to Rollbar through the package-level client.
type RollbarReporter struct{}

// NewRollbarReporter configures the global Rollbar client.
func NewRollbarReporter(token, env, host string) *RollbarReporter {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetServerHost(host)
	return &RollbarReporter{}
}

// Report implements Reporter.
func (RollbarReporter) Report(level zerolog.Level, msg string) {
	if level >= zerolog.FatalLevel {
		rollbar.Critical(msg)
		return
	}
	rollbar.Error(msg)
}

// Close flushes queued Rollbar items.
func (RollbarReporter) Close() {
	rollbar.Close()
}

// WithRollbar attaches a Rollbar hook to log when token is non-empty.
// The returned close func flushes pending reports and is safe to call when disabled.
func WithRollbar(log zerolog.Logger, token, env string) (zerolog.Logger, func()) {
	if token == "" {
		return log, func() {}
	}
	host, _ := hostname()
	r := NewRollbarReporter(token, env, host)
	return log.Hook(NewReportHook(r)), r.Close
}
