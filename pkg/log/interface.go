// Package log provides a structured logging interface for weldsim.
//
// The interface is slog-shaped (message plus alternating key/value fields) and
// is backed by zerolog in production. Training, inference, and HTTP code all
// log through it with the attribute keys defined in attributes.go, so log
// output from every layer can be filtered on the same field names.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ComponentKey, "weld",
//	    log.BankIDKey, bank.Info().ID,
//	)
//	logger.Info("Model bank trained",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 2500,
//	    log.FeaturesKey, 8,
//	)
package log

import (
	"context"
)

// Logger is the logging surface used across weldsim. Fields alternate
// key, value; Error additionally accepts a leading error value, logged under
// ErrAttrKey with its stack trace:
//
//	logger.Error("retrain failed, keeping current bank", err,
//	    log.BankKindKey, "forest",
//	    log.SamplesKey, 2500,
//	)
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every record.
	With(fields ...any) Logger

	Enabled(ctx context.Context, level Level) bool
}

// Level uses the slog.Level numbering.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
