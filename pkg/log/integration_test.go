package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// TestLoggerInterface tests the Logger interface implementation
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", "operation", "test")
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), "error_code", "TEST_ERROR")

	require.NotEmpty(t, buffer.String())
	assert.True(t, testLogger.ContainsMessage("debug message"))
	assert.True(t, testLogger.ContainsMessage("info message"))
	assert.True(t, testLogger.ContainsMessage("warning message"))
	assert.True(t, testLogger.ContainsMessage("error message"))

	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0)) // JSON unmarshaling converts numbers to float64
	assert.True(t, testLogger.ContainsField(ErrAttrKey, "test error"))
	assert.True(t, testLogger.ContainsField("error_code", "TEST_ERROR"))
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelNameKey, "RandomForestRegressor",
		ComponentKey, "weld",
		TargetKey, "penetration",
	)
	contextLogger.Info("contextual message", OperationKey, OperationFit)

	assert.True(t, testLogger.ContainsField(ModelNameKey, "RandomForestRegressor"))
	assert.True(t, testLogger.ContainsField(ComponentKey, "weld"))
	assert.True(t, testLogger.ContainsField(TargetKey, "penetration"))
	assert.True(t, testLogger.ContainsField(OperationKey, OperationFit))
}

// TestLoggerEnabled tests the Enabled method
func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	assert.False(t, testLogger.ContainsMessage("this should not appear"))
	assert.True(t, testLogger.ContainsMessage("this should appear"))
}

func TestZerologLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.With(BankIDKey, "bank-1").Info("bank trained",
		SamplesKey, 2500,
		R2ScoreKey, 0.91,
		BankKindKey, "forest",
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "bank trained", entry["message"])
	assert.Equal(t, "bank-1", entry[BankIDKey])
	assert.Equal(t, 2500.0, entry[SamplesKey])
	assert.Equal(t, 0.91, entry[R2ScoreKey])
	assert.Equal(t, "forest", entry[BankKindKey])
	assert.Contains(t, entry, "time")
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestZerologLogger_ErrorCarriesStackAndDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := errors.NewInvalidInputError("current", "abc", "not a number")
	logger.Error("predict failed", err, PathKey, "/predict")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry[ErrAttrKey], "invalid input for 'current'")
	assert.Equal(t, "/predict", entry[PathKey])
	require.Contains(t, entry, StacktraceKey)
	assert.True(t, strings.Contains(entry[StacktraceKey].(string), "integration_test.go"))

	detail, ok := entry[ErrDetailAttrKey].(map[string]interface{})
	require.True(t, ok, "expected structured error detail")
	assert.Equal(t, "current", detail["field"])
	assert.Equal(t, errors.KindInvalidInput, detail["type"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var vErr *errors.ValidationError
				assert.True(t, errors.As(err, &vErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger_RoutesWarnings(t *testing.T) {
	previous := GetLogger()
	defer SetLogger(previous)
	defer errors.SetZerologWarnFunc(nil)

	var buf bytes.Buffer
	logger, err := SetupLogger(&buf, "info", "json")
	require.NoError(t, err)
	assert.Same(t, logger, GetLogger())

	errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present", 0.5))

	out := buf.String()
	assert.Contains(t, out, "roc_auc")
	assert.Contains(t, out, "UndefinedMetricWarning")
}

func TestGetLoggerWithName(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	prev := GetLogger()
	SetLogger(testLogger)
	defer SetLogger(prev)

	GetLoggerWithName("server").Info("request served", StatusKey, 200)
	assert.True(t, testLogger.ContainsField(ComponentKey, "server"))
	assert.True(t, testLogger.ContainsField(StatusKey, 200.0))

	entries, err := testLogger.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0]["level"])
}

// TestConcurrentLogging tests that derived test loggers can be used from many goroutines
func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := testLogger.With("worker", id)
			for j := 0; j < 10; j++ {
				l.Info("predict", "row", j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 100)
}

func BenchmarkZerologLogging(b *testing.B) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)
	for i := 0; i < b.N; i++ {
		buf.Reset()
		logger.Info("predict", OperationKey, OperationPredict, SamplesKey, 1)
	}
}
