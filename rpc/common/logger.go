package common

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/sirupsen/logrus"
)

var (
	// Names of all package loggers used by shKV
	loggerNames = []string{"store", "transport/rpc", "rpc", "bootstrap"}
)

// the factory is installed before any importing package creates its logger
func init() {
	logger.SetLoggerFactory(CreateLogger)
}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// shKVLogger implements the ILogger interface on top of a logrus entry.
// The level is atomic, servers started later adjust it while others are logging.
type shKVLogger struct {
	level atomic.Int32
	entry *logrus.Entry
}

func (l *shKVLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *shKVLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *shKVLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.entry.Debugf(format, args...)
	}
}

func (l *shKVLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.entry.Infof(format, args...)
	}
}

func (l *shKVLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.entry.Warnf(format, args...)
	}
}

func (l *shKVLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.entry.Errorf(format, args...)
	}
}

func (l *shKVLogger) Panicf(format string, args ...interface{}) {
	if l.enabled(logger.CRITICAL) {
		l.entry.Panicf(format, args...)
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// base is shared by all package loggers. The per-package level filter lives in shKVLogger,
// logrus itself always lets everything through.
var base = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	return l
}()

// CreateLogger implements the logger.Factory signature
func CreateLogger(pkgName string) logger.ILogger {
	l := &shKVLogger{entry: base.WithField("pkg", pkgName)}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers sets the level of all shKV loggers. It is safe to call while other servers log.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
