package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
}

// Frames between runtime.Caller and the caller of a public log method:
// callerAt <- write <- Infow (or any other level method) <- user.
const callerSkip = 3

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Level() zapcore.Level {
	return imp.GetLevel().AsZap()
}

// Sublogger returns a registered child logger named "<parent>.<subname>" that writes to the same
// appenders. Asking twice for the same name yields the same logger.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return globalRegistry.getOrRegister(name, &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	})
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// AsZap builds a zap logger at this logger's level. Appenders that are also zap cores, such as
// test observers, are teed in.
func (imp *impl) AsZap() *zap.SugaredLogger {
	config := NewZapLoggerConfig()
	config.Level = zap.NewAtomicLevelAt(imp.Level())
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	for _, appender := range imp.appenders {
		core, ok := appender.(zapcore.Core)
		if !ok {
			continue
		}
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}
	return ret
}

func (imp *impl) Desugar() *zap.Logger {
	return imp.AsZap().Desugar()
}

func (imp *impl) Named(name string) *zap.SugaredLogger {
	return imp.AsZap().Named(name)
}

func (imp *impl) With(args ...interface{}) *zap.SugaredLogger {
	return imp.AsZap().With(args...)
}

func (imp *impl) WithOptions(opts ...zap.Option) *zap.SugaredLogger {
	return imp.AsZap().WithOptions(opts...)
}

// write formats and emits one entry if level is enabled or force is set. message is only
// evaluated when the entry is written.
func (imp *impl) write(level Level, force bool, message func() string, keysAndValues []interface{}) {
	if !force && level < imp.level.Get() {
		return
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    message(),
		Caller:     callerAt(callerSkip),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	fields := toFields(keysAndValues)
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// toFields pairs up alternating keys and values. A trailing key without a value is kept with an
// error in its place.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func sprint(args []interface{}) func() string {
	return func() string { return fmt.Sprint(args...) }
}

func sprintf(template string, args []interface{}) func() string {
	return func() string { return fmt.Sprintf(template, args...) }
}

func literal(msg string) func() string {
	return func() string { return msg }
}

// withDebugTag appends the context's debug tag, if any, to keysAndValues.
func withDebugTag(ctx context.Context, keysAndValues []interface{}) []interface{} {
	if tag := DebugTag(ctx); tag != "" {
		return append(keysAndValues, "debug", tag)
	}
	return keysAndValues
}

func (imp *impl) Debug(args ...interface{}) {
	imp.write(DEBUG, false, sprint(args), nil)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.write(DEBUG, false, sprintf(template, args), nil)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.write(DEBUG, false, literal(msg), keysAndValues)
}

// The C* variants log regardless of level when ctx was marked with EnableDebugMode.

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) {
	imp.write(DEBUG, IsDebugMode(ctx), sprint(args), withDebugTag(ctx, nil))
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.write(DEBUG, IsDebugMode(ctx), sprintf(template, args), withDebugTag(ctx, nil))
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.write(DEBUG, IsDebugMode(ctx), literal(msg), withDebugTag(ctx, keysAndValues))
}

func (imp *impl) Info(args ...interface{}) {
	imp.write(INFO, false, sprint(args), nil)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.write(INFO, false, sprintf(template, args), nil)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.write(INFO, false, literal(msg), keysAndValues)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.write(WARN, false, sprint(args), nil)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.write(WARN, false, sprintf(template, args), nil)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.write(WARN, false, literal(msg), keysAndValues)
}

func (imp *impl) Error(args ...interface{}) {
	imp.write(ERROR, false, sprint(args), nil)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.write(ERROR, false, sprintf(template, args), nil)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.write(ERROR, false, literal(msg), keysAndValues)
}

// Fatal logs at error level and exits.
func (imp *impl) Fatal(args ...interface{}) {
	imp.write(ERROR, true, sprint(args), nil)
	os.Exit(1)
}

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.write(ERROR, true, sprintf(template, args), nil)
	os.Exit(1)
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.write(ERROR, true, literal(msg), keysAndValues)
	os.Exit(1)
}

func callerAt(skip int) zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
