package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger  *zap.SugaredLogger
	logFile *os.File
)

func init() {
	// The TUI owns the terminal, so logs go to a file under tmp/
	logDir := "tmp"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logger = newLogger(zapcore.Lock(os.Stderr))
		return
	}

	logFileName := filepath.Join(logDir, fmt.Sprintf("cli-%s.log", time.Now().Format("20060102-150405")))

	var err error
	logFile, err = os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger = newLogger(zapcore.Lock(os.Stderr))
		return
	}

	logger = newLogger(zapcore.AddSync(logFile))
}

func newLogger(w zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), w, zap.DebugLevel)
	return zap.New(core, zap.AddCaller()).Named("cli").Sugar()
}

// L returns the CLI's structured logger.
func L() *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}

// Log writes a log message
func Log(format string, v ...interface{}) {
	if logger != nil {
		logger.Debugf(format, v...)
	}
}

// LogError writes an error log message
func LogError(err error, format string, v ...interface{}) {
	if logger != nil {
		logger.Errorw(fmt.Sprintf(format, v...), "error", err)
	}
}

// CloseLog flushes and closes the log file
func CloseLog() {
	if logger != nil {
		_ = logger.Sync()
	}
	if logFile != nil {
		logFile.Close()
	}
}
