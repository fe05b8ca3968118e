// Package logger wraps charmbracelet/log with the banner/section presentation
// the rest of the codebase expects at startup, and a package-level default
// logger so callers can log without threading a *Logger through every call.
package logger

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level re-exports charmlog's level type so callers don't need to import it
// directly.
type Level = charmlog.Level

const (
	LevelDebug = charmlog.DebugLevel
	LevelInfo  = charmlog.InfoLevel
	LevelWarn  = charmlog.WarnLevel
	LevelError = charmlog.ErrorLevel
)

var defaultLogger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

// SetLevel sets the minimum log level of the default logger.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

// ShowTime enables or disables the timestamp column.
func ShowTime(show bool) {
	defaultLogger.SetReportTimestamp(show)
}

// With returns a sub-logger carrying the given key/value pairs on every
// subsequent call, for session- or connection-scoped correlation (e.g. a
// CID or an xid session id).
func With(keyvals ...interface{}) *charmlog.Logger {
	return defaultLogger.With(keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) { defaultLogger.Debug(msg, keyvals...) }
func Info(msg interface{}, keyvals ...interface{})  { defaultLogger.Info(msg, keyvals...) }
func Warn(msg interface{}, keyvals ...interface{})  { defaultLogger.Warn(msg, keyvals...) }
func Error(msg interface{}, keyvals ...interface{}) { defaultLogger.Error(msg, keyvals...) }
func Fatal(msg interface{}, keyvals ...interface{}) { defaultLogger.Fatal(msg, keyvals...) }

// Section prints a section header, unchanged from the banner-driven startup
// texture the binaries print before entering their run loop.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Fprintf(os.Stderr, "\n%s\n %s\n%s\n\n", "╔"+border+"╗", title, "╚"+border+"╝")
}

// Banner prints the application banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██████╗ ██╗   ██╗██╗ ██████╗███████╗████████╗           ║
║  ██╔═══██╗██║   ██║██║██╔════╝██╔════╝╚══██╔══╝           ║
║  ██║   ██║██║   ██║██║██║     █████╗     ██║              ║
║  ██║▄▄ ██║██║   ██║██║██║     ██╔══╝     ██║              ║
║  ╚██████╔╝╚██████╔╝██║╚██████╗██║        ██║              ║
║   ╚══▀▀═╝  ╚═════╝ ╚═╝ ╚═════╝╚═╝        ╚═╝              ║
║                                                           ║
║              %-43s║
║                    Version %-10s              ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Fprintf(os.Stderr, banner, title, version)
}
