package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		handlers []slog.Handler
		logLevel string
	}{
		{
			name:     "No handler with default log level",
			handlers: nil,
			logLevel: "",
		},
		{
			name:     "No handler with DEBUG log level",
			handlers: nil,
			logLevel: "DEBUG",
		},
		{
			name:     "Custom handler provided",
			handlers: []slog.Handler{slog.NewJSONHandler(os.Stdout, nil)},
			logLevel: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)

			log := NewLogger(tt.handlers...)
			require.NotNil(t, log)

			if tt.logLevel != "" {
				assert.True(t, log.Enabled(testContext(t), getLevel(tt.logLevel)))
			}

			if len(tt.handlers) > 0 {
				assert.Equal(t, tt.handlers[0], log.Handler())
			}
		})
	}
}

func TestNewContextWithLogger(t *testing.T) {
	tests := []struct {
		name      string
		parentCtx context.Context
	}{
		{
			name:      "With Background context",
			parentCtx: testContext(t),
		},
		{
			name:      "With already set logger in context",
			parentCtx: context.WithValue(testContext(t), logger{}, NewLogger()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := NewContextWithLogger(tt.parentCtx)
			defer cancel()

			_, ok := ctx.Value(logger{}).(*slog.Logger)
			assert.True(t, ok, "context should carry a *slog.Logger")
			assert.NotEqual(t, tt.parentCtx, ctx)
		})
	}
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want *slog.Logger
	}{
		{
			name: "Context with logger",
			ctx:  IntoContext(testContext(t), NewLogger(slog.NewJSONHandler(os.Stdout, nil))),
			want: NewLogger(slog.NewJSONHandler(os.Stdout, nil)),
		},
		{
			name: "Context without logger",
			ctx:  testContext(t),
			want: NewLogger(),
		},
		{
			name: "Nil context",
			ctx:  nil,
			want: NewLogger(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromContext(tt.ctx)
			assert.Equal(t, reflect.TypeOf(tt.want.Handler()), reflect.TypeOf(got.Handler()))
		})
	}
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		level     string
		wantLevel slog.Level
		wantJSON  bool
	}{
		{
			name:      "Default handler",
			wantLevel: slog.LevelInfo,
		},
		{
			name:      "Text handler with custom log level",
			format:    "TEXT",
			level:     "DEBUG",
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "JSON handler with custom log level",
			format:    "json",
			level:     "WARN",
			wantLevel: slog.LevelWarn,
			wantJSON:  true,
		},
		{
			name:      "Invalid log level",
			format:    "TEXT",
			level:     "UNKNOWN",
			wantLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewHandler(&buf, tt.format, tt.level)

			assert.True(t, h.Enabled(testContext(t), tt.wantLevel))
			if tt.wantLevel > slog.LevelDebug {
				assert.False(t, h.Enabled(testContext(t), tt.wantLevel-4))
			}

			_, isJSON := h.(*slog.JSONHandler)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}
