package core

// Caller identifies the person on whose behalf an operation runs. Loggers attach it to reports.
type Caller struct {
	ID   string
	Role string
}

// Logger is the diagnostic sink. Expected args: error, map[string]interface{}, Caller.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
