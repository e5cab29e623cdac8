package logging

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationPolicy selects the lumberjack retention profile for a file
// logger built with NewFileLogger.
type RotationPolicy int

const (
	RotationSize RotationPolicy = iota
	RotationDaily
	RotationWeekly
)

// appLogger is the process-wide base logger, initialized in Init().
// ForComponent/ForDevice/ForSession all derive from it by adding attrs.
var (
	appLogger *slog.Logger
	loggerMu  sync.RWMutex
)

var currentLogLevel = new(slog.LevelVar)
var initOnce sync.Once

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// defaultReplaceAttr formats timestamps to second precision, names the
// custom TRACE/FATAL levels, and truncates float attrs (peak dB,
// drift ratios) to 2 decimal places so a capture session's log stays
// readable over long runs.
func defaultReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05Z07:00"))
	}
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			levelLabel, exists := levelNames[level]
			if !exists {
				levelLabel = level.String()
			}
			a.Value = slog.StringValue(levelLabel)
		} else {
			a.Value = slog.StringValue(fmt.Sprintf("%v", a.Value.Any()))
		}
	}
	if a.Value.Kind() == slog.KindFloat64 {
		truncatedVal := math.Trunc(a.Value.Float64()*100) / 100.0
		a.Value = slog.Float64Value(truncatedVal)
	}
	return a
}

// Init sets up the process-wide JSON logger, written to logs/app.log.
// Every component/device/session-scoped logger in this tree is derived
// from it via ForComponent/ForDevice/ForSession.
func Init() {
	initOnce.Do(func() {
		currentLogLevel.Set(slog.LevelInfo)

		if err := os.MkdirAll("logs", 0o755); err != nil { //nolint:gosec // accept 0o755 for now
			fmt.Printf("failed to create logs directory: %v\n", err)
			os.Exit(1)
		}

		logFile, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666) //nolint:gosec // accept 0o666 for now
		if err != nil {
			fmt.Printf("failed to open log file, falling back to stderr: %v\n", err)
			logFile = os.Stderr
		}

		handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
			Level:       currentLogLevel,
			ReplaceAttr: defaultReplaceAttr,
		})

		loggerMu.Lock()
		appLogger = slog.New(handler)
		loggerMu.Unlock()

		slog.SetDefault(appLogger)
	})
}

// SetLevel changes the logging level for every logger derived from Init.
func SetLevel(level slog.Level) {
	currentLogLevel.Set(level)
}

// ForComponent scopes the process logger to one multirec component
// (driver, capture, diskworker, bootstrap, orchestrator). Returns nil if
// Init has not been called. The driver package's callers use the result
// without a nil check, so they rely on Init having run first.
func ForComponent(name string) *slog.Logger {
	loggerMu.RLock()
	logger := appLogger
	loggerMu.RUnlock()

	if logger == nil {
		return nil
	}
	return logger.With("component", name)
}

// ForDevice scopes log to one capture device: its config index and
// configured name, the attrs needed to tell the synchronized devices'
// log lines apart. Safe to call with a nil log.
func ForDevice(log *slog.Logger, idx int, name string) *slog.Logger {
	if log == nil {
		return nil
	}
	return log.With("device_idx", idx, "device", name)
}

// ForSession scopes a logger to one recording's session number, assigned
// by bootstrap.NextSessionNumber at each RECORDING transition. Safe to
// call with a nil log.
func ForSession(log *slog.Logger, num int) *slog.Logger {
	if log == nil {
		return nil
	}
	return log.With("session_number", num)
}

// NewFileLogger creates a JSON logger at filePath, rotated by lumberjack
// per policy, scoped to component and sharing the level Init/SetLevel
// controls. Used for the per-run log file colocated with a session's
// output directory, independent of the generic logs/app.log Init opens.
// Returns a close function that flushes lumberjack's file handle.
func NewFileLogger(filePath, component string, rotation RotationPolicy) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil { //nolint:gosec // accept 0o755 for now
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	lj := &lumberjack.Logger{
		Filename: filePath,
		Compress: false,
	}

	maxSizeMB := 100
	maxBackups := 3
	maxAge := 28 // days

	switch rotation {
	case RotationDaily:
		maxAge = 1
		maxBackups = 30
	case RotationWeekly:
		maxAge = 7
		maxBackups = 4
	case RotationSize:
		// maxSizeMB default above stands.
	}

	lj.MaxSize = maxSizeMB
	lj.MaxBackups = maxBackups
	lj.MaxAge = maxAge

	handler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
		Level:       currentLogLevel,
		ReplaceAttr: defaultReplaceAttr,
	})

	logger := slog.New(handler).With("component", component)
	return logger, lj.Close, nil
}
