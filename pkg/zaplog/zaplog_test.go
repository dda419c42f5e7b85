package zaplog_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramendr/drenv/pkg/zaplog"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		line    string
		want    *zaplog.Record
		wantErr bool
	}{
		"production record": {
			line: `{"level":"info","ts":1700000000.5,"logger":"gather","caller":"gather/gather.go:42","msg":"Gathering","cluster":"dr1"}`,
			want: &zaplog.Record{
				Time:    time.Unix(1700000000, 500_000_000),
				Level:   slog.LevelInfo,
				Logger:  "gather",
				Caller:  "gather/gather.go:42",
				Message: "Gathering",
				Fields:  map[string]any{"cluster": "dr1"},
			},
		},
		"iso8601 time": {
			line: `{"level":"debug","ts":"2024-03-01T10:20:30.123Z","msg":"m"}`,
			want: &zaplog.Record{
				Time:    time.Date(2024, 3, 1, 10, 20, 30, 123_000_000, time.UTC),
				Level:   slog.LevelDebug,
				Message: "m",
				Fields:  map[string]any{},
			},
		},
		"no level or time": {
			line: `{"msg":"bare"}`,
			want: &zaplog.Record{
				Level:   slog.LevelInfo,
				Message: "bare",
				Fields:  map[string]any{},
			},
		},
		"stacktrace": {
			line: `{"level":"error","msg":"failed","stacktrace":"main.main\n\tmain.go:1"}`,
			want: &zaplog.Record{
				Level:      slog.LevelError,
				Message:    "failed",
				Stacktrace: "main.main\n\tmain.go:1",
				Fields:     map[string]any{},
			},
		},
		"not json": {
			line:    "E0301 10:20:30.123 memcache.go:265] couldn't get current server API group list",
			wantErr: true,
		},
		"json array": {
			line:    `["msg"]`,
			wantErr: true,
		},
		"json null": {
			line:    `null`,
			wantErr: true,
		},
		"missing message": {
			line:    `{"level":"info"}`,
			wantErr: true,
		},
		"trailing data": {
			line:    `{"msg":"a"} {"msg":"b"}`,
			wantErr: true,
		},
		"unknown level": {
			line:    `{"level":"loud","msg":"a"}`,
			wantErr: true,
		},
		"invalid time": {
			line:    `{"ts":"yesterday","msg":"a"}`,
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := zaplog.Parse(tc.line)
			if tc.wantErr {
				require.ErrorIs(t, err, zaplog.ErrInvalidRecord)

				return
			}

			require.NoError(t, err)
			assert.True(t, tc.want.Time.Equal(got.Time), "time: want %s, got %s", tc.want.Time, got.Time)

			got.Time = tc.want.Time
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Levels(t *testing.T) {
	t.Parallel()

	tcs := map[string]slog.Level{
		`"debug"`:     slog.LevelDebug,
		`"info"`:      slog.LevelInfo,
		`"warn"`:      slog.LevelWarn,
		`"WARN"`:      slog.LevelWarn,
		`"error"`:     slog.LevelError,
		`"dpanic"`:    slog.LevelError,
		`"panic"`:     slog.LevelError,
		`"fatal"`:     slog.LevelError,
		`"Level(-2)"`: slog.LevelDebug,
		`-1`:          slog.LevelDebug,
		`0`:           slog.LevelInfo,
		`1`:           slog.LevelWarn,
		`5`:           slog.LevelError,
	}

	for level, want := range tcs {
		t.Run(level, func(t *testing.T) {
			t.Parallel()

			r, err := zaplog.Parse(`{"level":` + level + `,"msg":"m"}`)
			require.NoError(t, err)
			assert.Equal(t, want, r.Level)
		})
	}
}

func TestLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	line := `{"level":"warn","ts":1700000000,"logger":"gather","msg":"cluster unreachable","cluster":"dr2","attempt":3}`

	err := zaplog.Log(t.Context(), logger, line, "dr-gather")
	require.NoError(t, err)

	var got map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "WARN", got["level"])
	assert.Equal(t, "cluster unreachable", got["msg"])
	assert.Equal(t, "dr-gather", got["name"])
	assert.Equal(t, "gather", got["logger"])
	assert.Equal(t, "dr2", got["cluster"])
	assert.InDelta(t, 3, got["attempt"], 0)

	ts, err := time.Parse(time.RFC3339Nano, got["time"].(string))
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Unix(1700000000, 0)))
}

func TestLog_AttributeOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := zaplog.Log(t.Context(), logger,
		`{"msg":"m","zeta":1,"alpha":2,"caller":"c.go:1","logger":"l"}`, "n")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "name=n logger=l caller=c.go:1 alpha=2 zeta=1")
}

func TestLog_Filtered(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, zaplog.Log(t.Context(), logger, `{"level":"debug","msg":"hidden"}`, "n"))
	assert.Empty(t, buf.String())
}

func TestLog_Invalid(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := zaplog.Log(t.Context(), logger, "plain text", "n")
	require.ErrorIs(t, err, zaplog.ErrInvalidRecord)
	assert.Empty(t, buf.String())
}
