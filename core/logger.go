package core

// Logger is implemented by the app's logging/error-reporting services.
// Optional args may carry an error, a map of extra data or the acting user.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
