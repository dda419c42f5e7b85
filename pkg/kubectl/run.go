package kubectl

import (
	"context"
	"errors"

	"github.com/ramendr/drenv/pkg/execs"
)

// Version returns the client and server version info. It is useful for
// testing connectivity to the API server.
//
// kubectl exits with an error when the server cannot be reached but still
// reports the client version. If the failed command produced output, that
// output is returned instead of the error.
func (c *Client) Version(ctx context.Context, opts ...Opt) (string, error) {
	o := newOptions(opts)

	var args []string
	if o.output != "" {
		args = append(args, "--output", o.output)
	}

	out, err := c.run(ctx, "version", o, c.newCommand(o, "version", args...))
	if err != nil {
		var execErr *execs.Error
		if errors.As(err, &execErr) && execErr.Output != "" {
			return execErr.Output, nil
		}

		return "", err
	}

	return out, nil
}

// Config runs "kubectl config args..." and returns the output.
func (c *Client) Config(ctx context.Context, args []string, opts ...Opt) (string, error) {
	return c.runSubcommand(ctx, "config", args, opts)
}

// Create runs "kubectl create args..." and returns the output.
func (c *Client) Create(ctx context.Context, args []string, opts ...Opt) (string, error) {
	return c.runSubcommand(ctx, "create", args, opts)
}

// Get runs "kubectl get args..." and returns the output.
func (c *Client) Get(ctx context.Context, args []string, opts ...Opt) (string, error) {
	return c.runSubcommand(ctx, "get", args, opts)
}

// Describe runs "kubectl describe args..." and returns the output.
func (c *Client) Describe(ctx context.Context, args []string, opts ...Opt) (string, error) {
	return c.runSubcommand(ctx, "describe", args, opts)
}

// Exec runs "kubectl exec args..." and returns the output.
func (c *Client) Exec(ctx context.Context, args []string, opts ...Opt) (string, error) {
	return c.runSubcommand(ctx, "exec", args, opts)
}

// Kustomize builds the kustomization at src and returns the rendered
// manifests. It never uses a kubeconfig context.
func (c *Client) Kustomize(ctx context.Context, src string, opts ...Opt) (string, error) {
	o := newOptions(opts)
	o.kubeContext = ""

	var args []string
	if o.loadRestrictor != "" {
		args = append(args, "--load-restrictor="+o.loadRestrictor)
	}

	args = append(args, src)

	return c.run(ctx, "kustomize", o, c.newCommand(o, "kustomize", args...))
}

func (c *Client) runSubcommand(ctx context.Context, subcommand string, args []string, opts []Opt) (string, error) {
	o := newOptions(opts)

	return c.run(ctx, subcommand, o, c.newCommand(o, subcommand, args...))
}
