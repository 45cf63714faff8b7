package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

const instrumentationName = "github.com/trafficsignal/trafficsignal"

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}
