// Package health holds error values that carry slog attributes, plus helpers that log an error and return it in one statement.
package health

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
)

// HealthErr is an error with a message, optional slog-style attributes, and an optional wrapped cause. Its Error text is "msg[k=v ...] via cause".
type HealthErr struct {
	Message string
	wrapped error
	attrs   []any
}

func (e *HealthErr) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if s := formatAttrs(e.attrs); s != "" {
		b.WriteByte('[')
		b.WriteString(s)
		b.WriteByte(']')
	}
	if e.wrapped != nil {
		b.WriteString(" via ")
		b.WriteString(e.wrapped.Error())
	}
	return b.String()
}

func (e *HealthErr) Unwrap() error {
	return e.wrapped
}

// Attrs returns the attributes the error was created with, in slog's args form.
func (e *HealthErr) Attrs() []any {
	return e.attrs
}

// NewErr returns an unlogged error. args are slog args: key/value pairs or slog.Attrs.
func NewErr(msg string, args ...any) error {
	return &HealthErr{Message: msg, attrs: args}
}

// Wrap returns an error with msg and args that wraps cause. A nil cause is replaced by a placeholder error rather than panicking.
func Wrap(msg string, cause error, args ...any) error {
	if cause == nil {
		cause = errors.New("health.Wrap called with a nil error")
	}
	return &HealthErr{Message: msg, wrapped: cause, attrs: args}
}

// LogNewErr is LogErr(logger, NewErr(msg, args...)).
func LogNewErr(logger *slog.Logger, msg string, args ...any) error {
	return LogErr(logger, NewErr(msg, args...))
}

// LogWrappedErr is LogErr(logger, Wrap(msg, cause, args...)).
func LogWrappedErr(logger *slog.Logger, msg string, cause error, args ...any) error {
	return LogErr(logger, Wrap(msg, cause, args...))
}

// LogErr logs err at Error level and returns it unchanged, so callers can write `return health.LogErr(logger, err)`. Nil loggers and nil errors are passed through.
//
// A *HealthErr (or *HumanErr) is logged with its own message, then its attrs, then a "via" attr holding the wrapped error's text, then args. Any other error is logged
// as err.Error() followed by args.
func LogErr(logger *slog.Logger, err error, args ...any) error {
	if logger == nil || err == nil {
		return err
	}

	var h *HealthErr
	switch e := err.(type) {
	case *HealthErr:
		h = e
	case *HumanErr:
		h = &e.HealthErr
	default:
		logger.Error(err.Error(), args...)
		return err
	}

	all := make([]any, 0, len(h.attrs)+len(args)+1)
	all = append(all, h.attrs...)
	if h.wrapped != nil {
		all = append(all, slog.String("via", h.wrapped.Error()))
	}
	all = append(all, args...)
	logger.Error(h.Message, all...)
	return err
}

// formatAttrs renders attrs the way slog's text handler does (`num=3 str="hi"`), without time, level, or message.
func formatAttrs(attrs []any) string {
	if len(attrs) == 0 {
		return ""
	}
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey, slog.LevelKey, slog.MessageKey:
				return slog.Attr{}
			}
			return a
		},
	})
	slog.New(h).Log(context.Background(), slog.LevelDebug, "", attrs...)
	return strings.TrimSuffix(buf.String(), "\n")
}
