package log

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"garagehub/internal/domain"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(build(zapcore.InfoLevel, true, os.Stdout))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "action",
		NameKey:        "logger",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

func build(level zapcore.Level, asJSON bool, writers ...io.Writer) *zap.Logger {
	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, w := range writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}
	enc := zapcore.NewJSONEncoder(encoderConfig())
	if !asJSON {
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(syncers...), level)
	return zap.New(core)
}

// Init replaces the process logger. Writers default to stdout.
func Init(level string, asJSON bool, writers ...io.Writer) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	current.Store(build(lvl, asJSON, writers...))
	return nil
}

// SetOutput routes JSON lines at debug level to w and returns a restore func.
func SetOutput(w io.Writer) (restore func()) {
	prev := current.Swap(build(zapcore.DebugLevel, true, w))
	return func() { current.Store(prev) }
}

// L returns the logger for code that runs outside a request.
func L() *zap.Logger { return current.Load() }

func Sync() { _ = current.Load().Sync() }

func requestFields(c *fiber.Ctx, kind string, fields map[string]any) []zap.Field {
	out := []zap.Field{zap.String("kind", kind)}
	if c != nil {
		out = append(out,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
		)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			out = append(out, zap.String("req_id", rid))
		}
		if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
			out = append(out, zap.String("user_id", u.ID))
		}
	}
	if len(fields) > 0 {
		out = append(out, zap.Any("fields", fields))
	}
	return out
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, requestFields(c, "info", fields)...)
}

func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, requestFields(c, "audit", fields)...)
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	L().Warn(action, requestFields(c, "security", fields)...)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	L().Error(action, append(requestFields(c, "error", fields), zap.Error(err))...)
}
