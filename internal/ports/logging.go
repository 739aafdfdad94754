package ports

// Logger is the structured logging contract used across the installer.
// Fields are alternating key/value pairs. Logging never affects control flow.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(err error, msg string, fields ...any)
}
