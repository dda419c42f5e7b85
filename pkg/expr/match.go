package expr

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Matcher evaluates a compiled expression against consecutive lines.
// It counts lines, so it must not be shared between streams.
type Matcher struct {
	program    cel.Program
	expression string
	count      int64
}

// NewMatcher compiles expression into a [Matcher].
func (e *Environment) NewMatcher(expression string) (*Matcher, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}

	return &Matcher{program: program, expression: expression}, nil
}

// Match evaluates the expression against line.
func (m *Matcher) Match(line string) (bool, error) {
	m.count++

	out, _, err := m.program.Eval(map[string]any{
		VarLine:   line,
		VarFields: strings.Fields(line),
		VarRecord: parseRecord(line),
		VarCount:  m.count,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", m.expression, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: %w: got %s", m.expression, ErrNotBool, out.Type())
	}

	return matched, nil
}

// Count returns the number of lines evaluated.
func (m *Matcher) Count() int64 {
	return m.count
}

// parseRecord decodes line if it holds a JSON object or array.
//
//nolint:ireturn // Following CEL's function signature.
func parseRecord(line string) ref.Val {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return types.NullValue
	}

	var v any

	err := yaml.Unmarshal([]byte(trimmed), &v)
	if err != nil {
		return types.NullValue
	}

	return ConvertToCELValue(v)
}
