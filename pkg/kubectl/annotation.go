package kubectl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAnnotation is returned by [ParseAnnotation].
var ErrInvalidAnnotation = errors.New("invalid annotation")

// Annotation is a change to one annotation of a resource: either setting a
// value or removing the key.
type Annotation struct {
	Key    string
	Value  string
	Remove bool
}

// Set returns an [Annotation] setting key to value. An empty value sets an
// empty annotation.
func Set(key, value string) Annotation {
	return Annotation{Key: key, Value: value}
}

// Remove returns an [Annotation] removing key.
func Remove(key string) Annotation {
	return Annotation{Key: key, Remove: true}
}

// String returns the kubectl argument for a, "key=value" or "key-".
func (a Annotation) String() string {
	if a.Remove {
		return a.Key + "-"
	}

	return a.Key + "=" + a.Value
}

// ParseAnnotation parses a kubectl annotation argument, "key=value" or
// "key-".
func ParseAnnotation(s string) (Annotation, error) {
	if key, value, ok := strings.Cut(s, "="); ok {
		if key == "" {
			return Annotation{}, fmt.Errorf("%w %q: empty key", ErrInvalidAnnotation, s)
		}

		return Set(key, value), nil
	}

	if key, ok := strings.CutSuffix(s, "-"); ok && key != "" {
		return Remove(key), nil
	}

	return Annotation{}, fmt.Errorf("%w %q: expected key=value or key-", ErrInvalidAnnotation, s)
}
