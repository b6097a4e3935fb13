// Package logging wraps go.uber.org/zap with the line format spec.md §6
// specifies: one line per event, "[YYYY-MM-DD HH:MM:SS] [LEVEL] message",
// with levels INFO, SUCCESS, WARNING, ERROR, PROGRESS. Log-file rotation is
// explicitly out of scope (spec.md §1), so the file sink here is a plain
// append-mode *os.File, not lumberjack.
package logging

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// successField is the zap field the encoder looks for to re-label an
// Info-level entry as SUCCESS, since zapcore has no built-in level between
// Info and Warn.
const successField = "smf_success"

// progressLevel is a custom level used for the PROGRESS log lines spec.md
// §6 names (chunk/row throughput updates). Its numeric value is chosen
// well outside zapcore's built-in range (-1..5) so it never collides with
// Debug/Info/Warn/Error/DPanic/Panic/Fatal in a switch.
const progressLevel = zapcore.Level(10)

// Logger wraps *zap.Logger with the two event kinds the line format needs
// beyond zap's built-in levels.
type Logger struct {
	*zap.Logger
}

// Options configures where log lines go.
type Options struct {
	// LogDir is paths.log_dir from the configuration record (spec.md §6).
	// Empty means stderr only.
	LogDir   string
	Filename string
	Level    zapcore.Level
}

// New builds a Logger writing the spec.md §6 line format to stderr and,
// if Options.LogDir is set, to an append-mode file under that directory.
func New(opts Options) (*Logger, error) {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.UTC().Format("2006-01-02 15:04:05") + "]")
		},
		EncodeLevel: func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + levelLabel(lvl) + "]")
		},
	}
	encoder := &lineEncoder{Encoder: zapcore.NewConsoleEncoder(encoderCfg)}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if opts.LogDir != "" {
		name := opts.Filename
		if name == "" {
			name = "pgmysqlmigrate.log"
		}
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filepath.Join(opts.LogDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), opts.Level)
	return &Logger{Logger: zap.New(core)}, nil
}

// Success logs an INFO-level entry tagged so the encoder renders it with
// the SUCCESS label instead of INFO.
func (l *Logger) Success(msg string, fields ...zap.Field) {
	l.Info(msg, append(fields, zap.Bool(successField, true))...)
}

// Progress logs a custom-level entry rendered with the PROGRESS label.
func (l *Logger) Progress(msg string, fields ...zap.Field) {
	if ce := l.Check(progressLevel, msg); ce != nil {
		ce.Write(fields...)
	}
}

func levelLabel(lvl zapcore.Level) string {
	switch lvl {
	case zapcore.InfoLevel:
		return "INFO"
	case progressLevel:
		return "PROGRESS"
	case zapcore.WarnLevel:
		return "WARNING"
	case zapcore.ErrorLevel:
		return "ERROR"
	case zapcore.DebugLevel:
		return "DEBUG"
	case successLevel:
		return "SUCCESS"
	default:
		return lvl.CapitalString()
	}
}

// lineEncoder intercepts the successField marker to relabel a rendered
// INFO line as SUCCESS, since zapcore has no "SUCCESS" level of its own.
type lineEncoder struct {
	zapcore.Encoder
}

func (e *lineEncoder) Clone() zapcore.Encoder {
	return &lineEncoder{Encoder: e.Encoder.Clone()}
}

func (e *lineEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	kept := fields[:0:0]
	isSuccess := false
	for _, f := range fields {
		if f.Key == successField && f.Type == zapcore.BoolType && f.Integer == 1 {
			isSuccess = true
			continue
		}
		kept = append(kept, f)
	}
	if isSuccess {
		entry.Level = successLevel
	}
	return e.Encoder.EncodeEntry(entry, kept)
}

// successLevel is a synthetic level used only to re-tag an entry's Level
// field before encoding so levelLabel renders "SUCCESS"; it never gates
// whether an entry is logged (that's always decided at the real InfoLevel).
const successLevel = zapcore.Level(11)
