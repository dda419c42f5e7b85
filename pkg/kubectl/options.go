package kubectl

import (
	"time"
)

// Opt configures a single [Client] call. Calls ignore options that do not
// apply to them.
type Opt func(*options)

type options struct {
	log            LogFunc
	kubeContext    string
	output         string
	loadRestrictor string
	namespace      string
	jsonpath       string
	directory      string
	name           string
	env            []string
	namespaces     []string
	input          []byte
	timeout        time.Duration
	overwrite      bool
	verbose        bool
}

func newOptions(opts []Opt) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithKubeContext selects the kubeconfig context to use.
func WithKubeContext(name string) Opt {
	return func(o *options) {
		o.kubeContext = name
	}
}

// WithEnv replaces the environment of the kubectl process.
func WithEnv(env ...string) Opt {
	return func(o *options) {
		o.env = env
	}
}

// WithInput is written to the standard input of kubectl, for use with
// "--filename -".
func WithInput(input []byte) Opt {
	return func(o *options) {
		o.input = input
	}
}

// WithLogFunc overrides the client's [LogFunc] for one call.
func WithLogFunc(fn LogFunc) Opt {
	return func(o *options) {
		o.log = fn
	}
}

// WithOutput sets the "--output" format of [Client.Version].
func WithOutput(format string) Opt {
	return func(o *options) {
		o.output = format
	}
}

// WithLoadRestrictor sets the "--load-restrictor" of [Client.Kustomize].
func WithLoadRestrictor(value string) Opt {
	return func(o *options) {
		o.loadRestrictor = value
	}
}

// WithOverwrite allows [Client.Label] and [Client.Annotate] to replace
// existing values.
func WithOverwrite() Opt {
	return func(o *options) {
		o.overwrite = true
	}
}

// WithNamespace sets the namespace of [Client.Annotate] and [Client.Watch].
func WithNamespace(ns string) Opt {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithJSONPath sets the JSONPath template of [Client.Watch].
func WithJSONPath(jsonpath string) Opt {
	return func(o *options) {
		o.jsonpath = jsonpath
	}
}

// WithTimeout stops [Client.Watch] once elapsed.
func WithTimeout(d time.Duration) Opt {
	return func(o *options) {
		o.timeout = d
	}
}

// WithNamespaces limits [Client.Gather] to the given namespaces.
func WithNamespaces(namespaces ...string) Opt {
	return func(o *options) {
		o.namespaces = namespaces
	}
}

// WithDirectory sets the output directory of [Client.Gather].
func WithDirectory(dir string) Opt {
	return func(o *options) {
		o.directory = dir
	}
}

// WithName sets the name [Client.Gather] tags its log records with.
func WithName(name string) Opt {
	return func(o *options) {
		o.name = name
	}
}

// WithVerbose enables verbose output of [Client.Gather].
func WithVerbose() Opt {
	return func(o *options) {
		o.verbose = true
	}
}
