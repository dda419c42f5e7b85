// Package zaplog ingests log records written by programs using
// [go.uber.org/zap]'s JSON encoder and re-emits them through [log/slog].
//
// It is used to surface the logs of kubectl plugins such as kubectl-gather,
// which write one JSON record per line.
package zaplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Keys used by zap's production encoder configuration.
const (
	KeyLevel      = "level"
	KeyTime       = "ts"
	KeyLogger     = "logger"
	KeyCaller     = "caller"
	KeyMessage    = "msg"
	KeyStacktrace = "stacktrace"
)

// zap's ISO8601TimeEncoder layout.
const iso8601 = "2006-01-02T15:04:05.000Z0700"

// ErrInvalidRecord is returned for lines that are not zap JSON records.
var ErrInvalidRecord = errors.New("invalid zap record")

// Record is a decoded zap log record.
type Record struct {
	Time       time.Time
	Fields     map[string]any
	Message    string
	Logger     string
	Caller     string
	Stacktrace string
	Level      slog.Level
}

// Parse decodes a single zap JSON record.
func Parse(line string) (*Record, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	var fields map[string]any

	err := dec.Decode(&fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after record", ErrInvalidRecord)
	}

	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidRecord)
	}

	msg, ok := fields[KeyMessage].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidRecord, KeyMessage)
	}

	r := &Record{
		Message: msg,
		Level:   slog.LevelInfo,
	}

	delete(fields, KeyMessage)

	if v, ok := fields[KeyLevel]; ok {
		r.Level, err = parseLevel(v)
		if err != nil {
			return nil, err
		}

		delete(fields, KeyLevel)
	}

	if v, ok := fields[KeyTime]; ok {
		r.Time, err = parseTime(v)
		if err != nil {
			return nil, err
		}

		delete(fields, KeyTime)
	}

	r.Logger = popString(fields, KeyLogger)
	r.Caller = popString(fields, KeyCaller)
	r.Stacktrace = popString(fields, KeyStacktrace)
	r.Fields = fields

	return r, nil
}

// Attrs returns the record's attributes, starting with name when it is not
// empty, followed by the logger, caller and stacktrace when present, and
// then the remaining fields in key order.
func (r *Record) Attrs(name string) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(r.Fields)+4)

	for _, a := range []slog.Attr{
		slog.String("name", name),
		slog.String(KeyLogger, r.Logger),
		slog.String(KeyCaller, r.Caller),
		slog.String(KeyStacktrace, r.Stacktrace),
	} {
		if a.Value.String() != "" {
			attrs = append(attrs, a)
		}
	}

	for _, k := range slices.Sorted(maps.Keys(r.Fields)) {
		attrs = append(attrs, slog.Any(k, value(r.Fields[k])))
	}

	return attrs
}

// Log parses line and emits it through logger, tagged with name.
//
// The record keeps its original level and timestamp. If the line cannot be
// parsed, nothing is logged and an error wrapping [ErrInvalidRecord] is
// returned.
func Log(ctx context.Context, logger *slog.Logger, line, name string) error {
	r, err := Parse(line)
	if err != nil {
		return err
	}

	h := logger.Handler()
	if !h.Enabled(ctx, r.Level) {
		return nil
	}

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	rec := slog.NewRecord(t, r.Level, r.Message, 0)
	rec.AddAttrs(r.Attrs(name)...)

	err = h.Handle(ctx, rec)
	if err != nil {
		return fmt.Errorf("handle record: %w", err)
	}

	return nil
}

// parseLevel maps zap levels onto slog levels. Levels above error (dpanic,
// panic and fatal) map to error.
func parseLevel(v any) (slog.Level, error) {
	switch v := v.(type) {
	case string:
		switch strings.ToLower(v) {
		case "debug":
			return slog.LevelDebug, nil
		case "info":
			return slog.LevelInfo, nil
		case "warn", "warning":
			return slog.LevelWarn, nil
		case "error", "dpanic", "panic", "fatal":
			return slog.LevelError, nil
		}

		// zap writes unknown levels as "Level(N)".
		if n, ok := strings.CutPrefix(v, "Level("); ok {
			if n, ok = strings.CutSuffix(n, ")"); ok {
				return parseLevel(json.Number(n))
			}
		}

	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			break
		}

		switch {
		case n < 0:
			return slog.LevelDebug, nil
		case n == 0:
			return slog.LevelInfo, nil
		case n == 1:
			return slog.LevelWarn, nil
		default:
			return slog.LevelError, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown level %v", ErrInvalidRecord, v)
}

// parseTime accepts epoch seconds, as written by zap's default encoder, or
// an RFC 3339 or ISO 8601 string.
func parseTime(v any) (time.Time, error) {
	switch v := v.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			break
		}

		sec, frac := math.Modf(f)

		return time.Unix(int64(sec), int64(frac*float64(time.Second))), nil

	case string:
		for _, layout := range []string{time.RFC3339Nano, iso8601} {
			t, err := time.Parse(layout, v)
			if err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("%w: invalid time %v", ErrInvalidRecord, v)
}

func popString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}

	delete(fields, key)

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// value converts decoded JSON numbers to Go numbers so handlers format them
// as numbers rather than strings.
func value(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}

	if i, err := n.Int64(); err == nil {
		return i
	}

	if f, err := n.Float64(); err == nil {
		return f
	}

	return n.String()
}
