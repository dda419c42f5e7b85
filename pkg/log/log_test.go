package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramendr/drenv/pkg/log"
)

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level   string
		format  string
		wantErr error
	}{
		"json":           {level: "info", format: "json"},
		"logfmt":         {level: "debug", format: "logfmt"},
		"text":           {level: "WARN", format: "TEXT"},
		"warning alias":  {level: "warning", format: "json"},
		"unknown level":  {level: "verbose", format: "json", wantErr: log.ErrUnknownLogLevel},
		"unknown format": {level: "info", format: "yaml", wantErr: log.ErrUnknownLogFormat},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, tc.level, tc.format)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.ErrorIs(t, err, log.ErrInvalidArgument)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestCreateHandler_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.CreateHandler(&buf, slog.LevelWarn, log.FormatJSON))
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := log.NewContext(context.Background(), logger)

	log.WithContext(ctx).Info("from context")
	assert.Contains(t, buf.String(), "from context")

	assert.Equal(t, slog.Default(), log.WithContext(context.Background()))
}

func TestWithContext_TraceID(t *testing.T) {
	t.Parallel()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x1b, 0x2c, 0x3d, 0x4e, 0x5f, 0x60, 0x71, 1},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
	})

	tcs := map[string]struct {
		ctx  func(ctx context.Context) context.Context
		want string
	}{
		"context logger is tagged": {
			ctx: func(ctx context.Context) context.Context {
				return trace.ContextWithSpanContext(ctx, sc)
			},
			want: `"trace_id":"0a1b2c3d"`,
		},
		"no span": {
			ctx:  func(ctx context.Context) context.Context { return ctx },
			want: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			ctx := log.NewContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
			ctx = tc.ctx(ctx)

			log.WithContext(ctx).InfoContext(ctx, "applied")
			assert.Contains(t, buf.String(), `"msg":"applied"`)

			if tc.want == "" {
				assert.NotContains(t, buf.String(), "trace_id")

				return
			}

			assert.Contains(t, buf.String(), tc.want)
		})
	}
}
