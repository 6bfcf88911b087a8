package core

// Logger logs messages with optional args: an error, LogFields or the current user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogFields is structured context attached to a log entry, e.g. LogFields{"match_id": id}.
type LogFields map[string]interface{}
