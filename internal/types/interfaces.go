package types

import (
	"context"
	"log/slog"
	"time"
)

// Logger defines the structured logging interface used by the notification
// path. *slog.Logger is adapted to it with NewSlogLogger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// slogAdapter wraps *slog.Logger to implement Logger. slog.Logger satisfies
// the first three methods but its With returns *slog.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

// NewSlogLogger adapts l to the Logger interface.
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogAdapter{logger: l}
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Clock abstracts time for testability. Scanner cycles receive their "now"
// from a Clock so tests can pin the due window.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a Clock that always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// EventPublisher is the contract the scheduler jobs and the mutation path use
// to put events on the bus.
type EventPublisher interface {
	Publish(ctx context.Context, eventType EventType, entityID string, payload TaskPayload) error
}
