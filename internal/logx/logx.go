// Package logx — единый формат логов: req_id, op, сообщение и пары ключ/значение.
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New создаёт базовый логгер приложения. Компонентные логгеры — через Component.
func New(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("app", "feed").Logger()
}

// Component — аналог префикса "[app] [postgres] " у стандартного логгера.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// Nop — для тестов
func Nop() zerolog.Logger { return zerolog.Nop() }

func Info(l zerolog.Logger, reqID, op, msg string, kv ...any) {
	ev := l.Info()
	fields(ev, reqID, op, kv).Msg(msg)
}

func Debug(l zerolog.Logger, reqID, op, msg string, kv ...any) {
	ev := l.Debug()
	fields(ev, reqID, op, kv).Msg(msg)
}

func Warn(l zerolog.Logger, reqID, op, msg string, err error, kv ...any) {
	ev := l.Warn().Err(err)
	fields(ev, reqID, op, kv).Msg(msg)
}

func Error(l zerolog.Logger, reqID, op, msg string, err error, kv ...any) {
	ev := l.Error().Err(err)
	fields(ev, reqID, op, kv).Msg(msg)
}

func fields(ev *zerolog.Event, reqID, op string, kv []any) *zerolog.Event {
	if reqID != "" {
		ev = ev.Str("req_id", reqID)
	}
	if op != "" {
		ev = ev.Str("op", op)
	}
	// нечётный хвост: под ключом "extra"
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = "extra"
		}
		if i+1 >= len(kv) {
			ev = ev.Interface("extra", kv[i])
			break
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
