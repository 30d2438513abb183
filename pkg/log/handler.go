package log

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	// ErrAttrKey is the field name errors are logged under.
	ErrAttrKey = "error"
	// ErrDetailAttrKey holds the structured form of errors implementing zerolog.LogObjectMarshaler.
	ErrDetailAttrKey = "error_detail"
)

// appendError attaches err, its cockroachdb stack trace and, when some error in
// the chain knows how to marshal itself, its structured fields.
func appendError(e *zerolog.Event, key string, err error) *zerolog.Event {
	e = e.AnErr(key, err)
	if key != ErrAttrKey {
		return e
	}
	if stacktrace := extractStacktrace(err); stacktrace != "" {
		e = e.Str(StacktraceKey, stacktrace)
	}
	var marshaler zerolog.LogObjectMarshaler
	if errors.As(err, &marshaler) {
		e = e.Object(ErrDetailAttrKey, marshaler)
	}
	return e
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
