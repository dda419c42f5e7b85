package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"

	jsv "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:generate go run ../../internal/schemagen/main.go -o config.v1alpha1.json

// schemaURL identifies the configuration schema within the compiler.
const schemaURL = "/config.v1alpha1.json"

// DefaultValidator returns the [Validator] for the [Config] schema.
var DefaultValidator = sync.OnceValues(func() (*Validator, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}

	return NewValidator(schemaURL, data)
})

// Schema returns the JSON schema of [Config].
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&Config{})
	schema.ID = ""
	schema.Title = "drenv configuration"
	schema.Required = []string{"apiVersion", "kind"}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return data, nil
}

// ValidationError is a schema violation, located by a YAML path.
type ValidationError struct {
	Err    error
	Path   *yaml.Path
	Source []byte
}

func (e *ValidationError) Error() string {
	if e.Path == nil {
		return e.Err.Error()
	}

	msg := fmt.Sprintf("error at %s: %v", e.Path, e.Err)

	if len(e.Source) > 0 {
		src, err := e.Path.AnnotateSource(e.Source, false)
		if err == nil {
			msg += "\n" + string(src)
		}
	}

	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validator validates data against a JSON schema.
type Validator struct {
	schema *jsv.Schema
}

// NewValidator compiles schemaData, identified by url, into a [Validator].
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	schema, err := jsv.UnmarshalJSON(bytes.NewReader(schemaData))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsv.NewCompiler()

	err = compiler.AddResource(url, schema)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

// Validate validates data, as decoded from YAML into an any. Violations are
// returned as a [*ValidationError] pointing at the most specific location.
func (v *Validator) Validate(data any) error {
	err := v.schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsv.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	return &ValidationError{
		Err:  validationErr,
		Path: pathFromLocation(mostSpecificLocation(validationErr)),
	}
}

// mostSpecificLocation returns the longest instance location among err and
// its causes.
func mostSpecificLocation(err *jsv.ValidationError) []string {
	longest := err.InstanceLocation

	for _, cause := range err.Causes {
		candidate := mostSpecificLocation(cause)
		if len(candidate) > len(longest) {
			longest = candidate
		}
	}

	return longest
}

func pathFromLocation(location []string) *yaml.Path {
	pb := &yaml.PathBuilder{}
	current := pb.Root()

	for _, part := range location {
		index, err := strconv.ParseUint(part, 10, 0)
		if err == nil {
			current = current.Index(uint(index))
		} else {
			current = current.Child(part)
		}
	}

	return current.Build()
}
