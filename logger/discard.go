package logger

type discardLogger struct {
	level Level
}

var _ Logger = (*discardLogger)(nil)

// NewDiscard returns a Logger that drops every message.
// It is used when logging is disabled in the equipment configuration.
func NewDiscard() Logger {
	return &discardLogger{level: FatalLevel}
}

func (*discardLogger) Debug(string, ...any) {}
func (*discardLogger) Info(string, ...any)  {}
func (*discardLogger) Warn(string, ...any)  {}
func (*discardLogger) Error(string, ...any) {}

// Fatal is also silent; a disabled logger never terminates the process.
func (*discardLogger) Fatal(string, ...any) {}

func (l *discardLogger) With(...any) Logger { return l }

func (l *discardLogger) Level() Level { return l.level }

func (l *discardLogger) SetLevel(level Level) { l.level = level }
