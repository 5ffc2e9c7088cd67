package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option 透传给 zap.New 的选项
type Option = zap.Option

func AddCaller() Option            { return zap.AddCaller() }
func AddCallerSkip(skip int) Option { return zap.AddCallerSkip(skip) }

// Format 日志编码格式
type Format string

const (
	ConsoleFormat Format = "console" // [时间] [级别] [名称] [位置] 消息 {字段}
	JSONFormat    Format = "json"
)

// ParseFormat 解析格式名称，空字符串视为 console
func ParseFormat(text string) (Format, error) {
	switch Format(strings.ToLower(text)) {
	case "", ConsoleFormat:
		return ConsoleFormat, nil
	case JSONFormat:
		return JSONFormat, nil
	}
	return "", fmt.Errorf("unknown log format: %q", text)
}

// 方法内部经过 ZapLogger 的两层调用才到 zap，调用位置需要跳过这两帧
const innerCallerSkip = 2

// ZapLogger 基于 zap 的日志实现，级别可在运行时通过 SetLevel 调整
type ZapLogger struct {
	base  *zap.Logger
	level *zap.AtomicLevel // Nop 时为 nil
}

// New 创建 console 格式的日志
func New(out io.Writer, level Level, opts ...Option) *ZapLogger {
	return NewWithFormat(out, level, ConsoleFormat, opts...)
}

// NewWithFormat 创建指定编码格式的日志，out 为 nil 时写标准错误
func NewWithFormat(out io.Writer, level Level, format Format, opts ...Option) *ZapLogger {
	if out == nil {
		out = os.Stderr
	}

	lv := zap.NewAtomicLevelAt(toZapLevel(level))
	core := zapcore.NewCore(NewEncoder(format), zapcore.AddSync(out), lv)

	opts = append([]Option{zap.AddCallerSkip(innerCallerSkip)}, opts...)
	return &ZapLogger{base: zap.New(core, opts...), level: &lv}
}

// Nop 返回丢弃所有输出的日志
func Nop() *ZapLogger {
	return &ZapLogger{base: zap.NewNop()}
}

// NewEncoder 按格式构造编码器
func NewEncoder(format Format) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	if format == JSONFormat {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		cfg.EncodeName = zapcore.FullNameEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(bracket(l.CapitalString()))
	}
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(bracket(t.Format(consoleTimeLayout)))
	}
	cfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(bracket(c.TrimmedPath()))
	}
	cfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(bracket(name))
	}
	return zapcore.NewConsoleEncoder(cfg)
}

const consoleTimeLayout = "2006-01-02 15:04:05"

func bracket(s string) string {
	return "[" + s + "]"
}

// Named 返回追加了名称段的子日志，例如 config、fsm.door
func (l *ZapLogger) Named(name string) *ZapLogger {
	return &ZapLogger{base: l.base.Named(name), level: l.level}
}

func (l *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{base: l.base.With(fields...), level: l.level}
}

// SetLevel 对 New 出的日志及其全部子日志生效
func (l *ZapLogger) SetLevel(level Level) {
	if l.level != nil {
		l.level.SetLevel(toZapLevel(level))
	}
}

func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.write(zapcore.DebugLevel, msg, fields) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.write(zapcore.InfoLevel, msg, fields) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.write(zapcore.WarnLevel, msg, fields) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.write(zapcore.ErrorLevel, msg, fields) }
func (l *ZapLogger) Panic(msg string, fields ...Field) { l.write(zapcore.PanicLevel, msg, fields) }
func (l *ZapLogger) Fatal(msg string, fields ...Field) { l.write(zapcore.FatalLevel, msg, fields) }

func (l *ZapLogger) Debugf(format string, v ...interface{}) { l.writef(zapcore.DebugLevel, format, v) }
func (l *ZapLogger) Infof(format string, v ...interface{})  { l.writef(zapcore.InfoLevel, format, v) }
func (l *ZapLogger) Warnf(format string, v ...interface{})  { l.writef(zapcore.WarnLevel, format, v) }
func (l *ZapLogger) Errorf(format string, v ...interface{}) { l.writef(zapcore.ErrorLevel, format, v) }
func (l *ZapLogger) Panicf(format string, v ...interface{}) { l.writef(zapcore.PanicLevel, format, v) }
func (l *ZapLogger) Fatalf(format string, v ...interface{}) { l.writef(zapcore.FatalLevel, format, v) }

// write 与 writef 必须由导出方法直接调用，否则调用位置会偏移
func (l *ZapLogger) write(lvl zapcore.Level, msg string, fields []Field) {
	if ce := l.base.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

// writef 在级别关闭时跳过格式化；Panic 与 Fatal 总要执行终止动作
func (l *ZapLogger) writef(lvl zapcore.Level, format string, v []interface{}) {
	if lvl < zapcore.DPanicLevel && !l.base.Core().Enabled(lvl) {
		return
	}
	if ce := l.base.Check(lvl, fmt.Sprintf(format, v...)); ce != nil {
		ce.Write()
	}
}
