package kubectl

import (
	"context"
	"fmt"
	"strings"

	"github.com/ramendr/drenv/pkg/execs"
	"github.com/ramendr/drenv/pkg/log"
	"github.com/ramendr/drenv/pkg/zaplog"
)

// JSONPathNewline ends every record printed by [Client.Watch], so each
// record is delivered as exactly one line.
const JSONPathNewline = `{"\n"}`

// DefaultJSONPath is the JSONPath template used by [Client.Watch] when none
// is given.
const DefaultJSONPath = "{}"

// DefaultGatherName tags the log records of [Client.Gather] by default.
const DefaultGatherName = "gather"

// Apply runs "kubectl apply args...", logging progress messages. Use
// [WithInput] to pass manifests with "--filename -".
func (c *Client) Apply(ctx context.Context, args []string, opts ...Opt) error {
	return c.watchSubcommand(ctx, "apply", args, opts)
}

// Patch runs "kubectl patch args...", logging progress messages.
func (c *Client) Patch(ctx context.Context, args []string, opts ...Opt) error {
	return c.watchSubcommand(ctx, "patch", args, opts)
}

// Delete runs "kubectl delete args...", logging progress messages. Use
// [WithInput] to pass manifests with "--filename -".
func (c *Client) Delete(ctx context.Context, args []string, opts ...Opt) error {
	return c.watchSubcommand(ctx, "delete", args, opts)
}

// Rollout runs "kubectl rollout args...", logging progress messages.
func (c *Client) Rollout(ctx context.Context, args []string, opts ...Opt) error {
	return c.watchSubcommand(ctx, "rollout", args, opts)
}

// Wait runs "kubectl wait args...", logging progress messages.
func (c *Client) Wait(ctx context.Context, args []string, opts ...Opt) error {
	return c.watchSubcommand(ctx, "wait", args, opts)
}

// Label sets or removes a label of resource, logging progress messages.
//
// Use label "name=value" to set a label and "name-" to remove it.
func (c *Client) Label(ctx context.Context, resource, label string, opts ...Opt) error {
	o := newOptions(opts)

	args := []string{resource, label}
	if o.overwrite {
		args = append(args, "--overwrite")
	}

	return c.stream(ctx, "label", o, c.newCommand(o, "label", args...), c.printLines(o))
}

// Annotate changes the annotations of resource in order, logging progress
// messages.
func (c *Client) Annotate(ctx context.Context, resource string, annotations []Annotation, opts ...Opt) error {
	o := newOptions(opts)

	args := make([]string, 0, len(annotations)+4)
	args = append(args, resource)

	for _, a := range annotations {
		args = append(args, a.String())
	}

	if o.overwrite {
		args = append(args, "--overwrite")
	}

	if o.namespace != "" {
		args = append(args, "--namespace", o.namespace)
	}

	return c.stream(ctx, "annotate", o, c.newCommand(o, "annotate", args...), c.printLines(o))
}

// Watch runs "kubectl get resource --watch" and returns its output lines.
// The resource may be a kind ("pod") or a single resource ("pod/name").
//
// Each record is printed using the [WithJSONPath] template, which is
// terminated with [JSONPathNewline] unless it already ends with one.
//
// The stream ends when kubectl exits, when the [WithTimeout] duration
// elapses, or when ctx is done. Close the stream to stop watching early.
// Starting kubectl may fail with an [*execs.Error]; the stream reports a
// timeout with an error matching [execs.ErrTimeout].
//
// The "watch" span lasts until the stream is exhausted or closed.
func (c *Client) Watch(ctx context.Context, resource string, opts ...Opt) (execs.LineStream, error) {
	o := newOptions(opts)

	jsonpath := o.jsonpath
	if jsonpath == "" {
		jsonpath = DefaultJSONPath
	}

	if !strings.HasSuffix(jsonpath, JSONPathNewline) {
		jsonpath += JSONPathNewline
	}

	args := []string{resource, "--watch", "--output=jsonpath=" + jsonpath}
	if o.namespace != "" {
		args = append(args, "--namespace="+o.namespace)
	}

	if o.kubeContext != "" {
		args = append(args, "--context="+o.kubeContext)
	}

	// The context goes last as a single token, so it is cleared here to keep
	// newCommand from adding it after the subcommand.
	watchOpts := *o
	watchOpts.kubeContext = ""

	cmd := c.newCommand(&watchOpts, "get", args...)
	cmd.Timeout = o.timeout

	//nolint:spancheck // Ended by the returned stream.
	ctx, span := c.startSpan(ctx, "watch", o)

	lines, err := c.runner.Watch(ctx, cmd)
	if err != nil {
		recordError(span, err)
		span.End()

		return nil, err //nolint:wrapcheck // Propagated unchanged.
	}

	return &spanStream{LineStream: lines, span: span}, nil
}

// Gather runs the kubectl-gather plugin on the given contexts, logging the
// plugin's log records.
//
// The plugin writes JSON log records to standard error. Each record is
// logged through the context logger tagged with the [WithName] name and the
// trace ID of the "gather" span. Lines
// that are not valid records are logged at debug level and do not fail the
// gather.
func (c *Client) Gather(ctx context.Context, contexts []string, opts ...Opt) error {
	o := newOptions(opts)

	name := o.name
	if name == "" {
		name = DefaultGatherName
	}

	args := []string{"--log-format", "json", "--contexts", strings.Join(contexts, ",")}
	if len(o.namespaces) > 0 {
		args = append(args, "--namespaces", strings.Join(o.namespaces, ","))
	}

	if o.directory != "" {
		args = append(args, "--directory", o.directory)
	}

	if o.verbose {
		args = append(args, "--verbose")
	}

	// gather selects clusters with --contexts.
	gatherOpts := *o
	gatherOpts.kubeContext = ""

	cmd := c.newCommand(&gatherOpts, "gather", args...)
	// kubectl-gather does not write anything to standard output.
	cmd.MergeStderr = true

	return c.stream(ctx, "gather", o, cmd, func(ctx context.Context, line string) {
		logger := log.WithContext(ctx)

		err := zaplog.Log(ctx, logger, line, name)
		if err != nil {
			logger.DebugContext(ctx, fmt.Sprintf("[%s] %s", name, line))
		}
	})
}

func (c *Client) watchSubcommand(ctx context.Context, subcommand string, args []string, opts []Opt) error {
	o := newOptions(opts)

	cmd := c.newCommand(o, subcommand, args...)
	cmd.Stdin = o.input

	return c.stream(ctx, subcommand, o, cmd, c.printLines(o))
}
