package sfmgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with scene-graph specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithShot adds a shot id field to the logger.
func (l *Logger) WithShot(id ShotID) *Logger {
	return &Logger{
		Logger: l.Logger.With("shot", string(id)),
	}
}

// WithLandmark adds a landmark id field to the logger.
func (l *Logger) WithLandmark(id LandmarkID) *Logger {
	return &Logger{
		Logger: l.Logger.With("landmark", string(id)),
	}
}

// WithCamera adds a camera id field to the logger.
func (l *Logger) WithCamera(id CameraID) *Logger {
	return &Logger{
		Logger: l.Logger.With("camera", string(id)),
	}
}

// WithRigInstance adds a rig instance id field to the logger.
func (l *Logger) WithRigInstance(id RigInstanceID) *Logger {
	return &Logger{
		Logger: l.Logger.With("rig_instance", string(id)),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogCreateShot logs a shot creation.
func (l *Logger) LogCreateShot(ctx context.Context, shot ShotID, camera CameraID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create shot failed",
			"shot", string(shot),
			"camera", string(camera),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "shot created",
		"shot", string(shot),
		"camera", string(camera),
	)
}

// LogRemoveShot logs a shot removal with the number of detached
// observations.
func (l *Logger) LogRemoveShot(ctx context.Context, shot ShotID, detached int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove shot failed",
			"shot", string(shot),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "shot removed",
		"shot", string(shot),
		"detached_observations", detached,
	)
}

// LogCleanLandmarks logs a landmark pruning pass.
func (l *Logger) LogCleanLandmarks(ctx context.Context, minObservations, removed int) {
	l.InfoContext(ctx, "landmarks pruned",
		"min_observations", minObservations,
		"removed", removed,
	)
}
