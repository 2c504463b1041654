package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// FilePath enables a rotated log file next to the console output.
	FilePath       string
	MaxSizeMB      int
	RetentionDays  int
	MaxBackupFiles int
	Level          string
}

type Logger struct {
	zap *zap.SugaredLogger
}

func NewRoot(opts Options) (*Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 7
	}
	if opts.MaxBackupFiles <= 0 {
		opts.MaxBackupFiles = 20
	}

	consoleEncoderCfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "module",
		MessageKey:       "msg",
		EncodeTime:       shortTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " | ",
	}
	if isTTY(os.Stderr) {
		consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		consoleEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	// Console output goes to stderr so command output on stdout stays clean.
	cores := []zapcore.Core{zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		fileEncoderCfg := zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "module",
			MessageKey:       "msg",
			EncodeTime:       longTimeEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeDuration:   zapcore.StringDurationEncoder,
			EncodeCaller:     zapcore.ShortCallerEncoder,
			ConsoleSeparator: " | ",
		}
		roller := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackupFiles,
			MaxAge:     opts.RetentionDays,
			Compress:   false,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileEncoderCfg),
			zapcore.AddSync(roller),
			level,
		))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCallerSkip(1))
	return &Logger{zap: base.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop().Sugar()}
}

func (l *Logger) Module(module string) *Logger {
	m := strings.TrimSpace(module)
	if m == "" {
		m = "app"
	}
	return &Logger{zap: l.zap.Named(m)}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.zap.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.zap.Infof(format, args...)
}

func (l *Logger) Okf(format string, args ...any) {
	l.zap.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.zap.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.zap.Errorf(format, args...)
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.zap.Fatalf(format, args...)
}

func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func parseLevel(name string) (zapcore.Level, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(n))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("01-02 15:04:05"))
}

func longTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05"))
}

func isTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
