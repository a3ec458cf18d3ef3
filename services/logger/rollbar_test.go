package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/presence/core"
)

func newObservedLogger() (*RollbarLogger, *observer.ObservedLogs) {
	zc, logs := observer.New(zapcore.DebugLevel)
	l := NewRollbarLogger(zap.New(zc), core.NewTestConfig())
	l.Enable(false)
	return l, logs
}

func TestRollbarLogger_Fields(t *testing.T) {
	l, logs := newObservedLogger()

	err := errors.New("boom")
	l.Error("request failed", err, map[string]interface{}{"path": "/api/groups"}, core.Person{ID: "u1", Email: "a@b.c"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "request failed", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "boom", ctx[FieldError])
	assert.Equal(t, "/api/groups", ctx["path"])
	assert.Equal(t, "u1", ctx[FieldUserID])
	assert.Equal(t, "a@b.c", ctx[FieldEmail])
}

func TestRollbarLogger_OnlyFirstPerson(t *testing.T) {
	l, logs := newObservedLogger()

	l.Info("hello", core.Person{ID: "first"}, core.Person{ID: "second"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "first", logs.All()[0].ContextMap()[FieldUserID])
}

func TestRollbarLogger_Levels(t *testing.T) {
	l, logs := newObservedLogger()

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	levels := make([]zapcore.Level, 0, logs.Len())
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}, levels)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"WARNING", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidLogLevel))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
