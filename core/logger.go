package core

// Logger reports messages with optional context args:
// errors, map[string]interface{} or the acting user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the staff member acting when something is logged.
type Person struct {
	ID       string
	Username string
	Email    string
}
