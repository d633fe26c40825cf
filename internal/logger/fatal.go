package logger

import (
	"log/slog"
	"os"
)

// FatalWithLogger logs msg at error level through logger and exits the process.
func FatalWithLogger(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
