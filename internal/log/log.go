// Package log is the process-wide logging sink: a package-level, swappable
// *zap.SugaredLogger reached through Info/Infof/... helpers, so every
// other internal package can log without threading a Logger value through
// every constructor.
package log

import "go.uber.org/zap"

// Logger is the subset of *zap.SugaredLogger this module depends on. A
// caller supplying their own implementation via SetLogger need not depend
// on zap directly.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
}

var global Logger = zap.NewNop().Sugar()

// SetLogger replaces the package-wide logger. Not safe to call
// concurrently with logging calls; intended to run once during startup,
// before any node is created.
func SetLogger(lg Logger) {
	if lg == nil {
		return
	}
	global = lg
}

// GetLogger returns the currently installed logger.
func GetLogger() Logger { return global }

func Debug(args ...interface{})                 { global.Debug(args...) }
func Debugf(template string, args ...interface{}) { global.Debugf(template, args...) }
func Info(args ...interface{})                  { global.Info(args...) }
func Infof(template string, args ...interface{}) { global.Infof(template, args...) }
func Warn(args ...interface{})                  { global.Warn(args...) }
func Warnf(template string, args ...interface{}) { global.Warnf(template, args...) }
func Error(args ...interface{})                 { global.Error(args...) }
func Errorf(template string, args ...interface{}) { global.Errorf(template, args...) }
func Fatal(args ...interface{})                 { global.Fatal(args...) }
func Fatalf(template string, args ...interface{}) { global.Fatalf(template, args...) }
