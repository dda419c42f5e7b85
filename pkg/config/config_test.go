package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramendr/drenv/pkg/config"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		validate func(t *testing.T, c *config.Config)
		input    string
		errPath  string
		wantErr  bool
	}{
		"full configuration": {
			input: `apiVersion: drenv.ramendr.io/v1alpha1
kind: Configuration
kubectl:
  command: kubectl --kubeconfig /tmp/kc
  context: hub
watch:
  timeout: 5m
gather:
  directory: /tmp/gather
`,
			validate: func(t *testing.T, c *config.Config) {
				t.Helper()
				assert.Equal(t, "kubectl --kubeconfig /tmp/kc", c.Kubectl.Command)
				assert.Equal(t, "hub", c.Kubectl.Context)
				assert.Equal(t, "/tmp/gather", c.Gather.Directory)

				d, err := c.Watch.TimeoutDuration()
				require.NoError(t, err)
				assert.Equal(t, 5*time.Minute, d)
			},
		},
		"defaults are filled in": {
			input: "apiVersion: drenv.ramendr.io/v1alpha1\nkind: Configuration\n",
			validate: func(t *testing.T, c *config.Config) {
				t.Helper()
				assert.Equal(t, "kubectl", c.Kubectl.Command)
				assert.Empty(t, c.Kubectl.Context)

				d, err := c.Watch.TimeoutDuration()
				require.NoError(t, err)
				assert.Zero(t, d)
			},
		},
		"empty document": {
			input: "",
			validate: func(t *testing.T, c *config.Config) {
				t.Helper()
				assert.Equal(t, config.NewConfig(), c)
			},
		},
		"unknown key": {
			input:   "apiVersion: drenv.ramendr.io/v1alpha1\nkind: Configuration\nkubectl:\n  binary: oc\n",
			wantErr: true,
			errPath: "$.kubectl",
		},
		"invalid timeout": {
			input:   "apiVersion: drenv.ramendr.io/v1alpha1\nkind: Configuration\nwatch:\n  timeout: soon\n",
			wantErr: true,
			errPath: "$.watch.timeout",
		},
		"wrong kind": {
			input:   "apiVersion: drenv.ramendr.io/v1alpha1\nkind: Policy\n",
			wantErr: true,
			errPath: "$.kind",
		},
		"missing api version": {
			input:   "kind: Configuration\n",
			wantErr: true,
		},
		"wrong type": {
			input:   "apiVersion: drenv.ramendr.io/v1alpha1\nkind: Configuration\nwatch: 5m\n",
			wantErr: true,
			errPath: "$.watch",
		},
		"invalid yaml": {
			input:   "kubectl: [\n",
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c, err := config.Parse([]byte(tc.input))
			if tc.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidConfig)

				if tc.errPath != "" {
					var verr *config.ValidationError
					require.ErrorAs(t, err, &verr)
					assert.Equal(t, tc.errPath, verr.Path.String())
				}

				return
			}

			require.NoError(t, err)
			tc.validate(t, c)
		})
	}
}

func TestTimeoutDuration(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		timeout string
		want    time.Duration
		wantErr bool
	}{
		"empty":    {timeout: "", want: 0},
		"minutes":  {timeout: "10m", want: 10 * time.Minute},
		"compound": {timeout: "1h30m", want: 90 * time.Minute},
		"invalid":  {timeout: "forever", wantErr: true},
		"negative": {timeout: "-1s", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			w := &config.WatchConfig{Timeout: tc.timeout}

			got, err := w.TimeoutDuration()
			if tc.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidConfig)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	c, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig(), c)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apiVersion: drenv.ramendr.io/v1alpha1\nkind: Configuration\nkubectl:\n  context: dr1\n"), 0o600))

	c, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dr1", c.Kubectl.Context)

	require.NoError(t, os.WriteFile(path, []byte("kind: Unknown\n"), 0o600))

	_, err = config.Load(path)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), path)
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "drenv", "config.yaml")

	require.NoError(t, config.WriteDefault(path, false))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig(), c)

	// Existing files are kept.
	require.NoError(t, os.WriteFile(path, []byte("kind: Configuration\n"), 0o600))
	require.NoError(t, config.WriteDefault(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kind: Configuration\n", string(data))

	// Forced writes keep a backup.
	require.NoError(t, config.WriteDefault(path, true))

	backups, err := filepath.Glob(path + ".*.old")
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	_, err = config.Load(path)
	require.NoError(t, err)

	require.Error(t, config.WriteDefault(filepath.Dir(path), false))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	data, err := config.Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	for _, key := range []string{"apiVersion", "kind", "kubectl", "watch", "gather"} {
		assert.Contains(t, props, key)
	}

	assert.Equal(t, false, schema["additionalProperties"])
}

func TestConfig_MarshalYAML(t *testing.T) {
	t.Parallel()

	c := config.NewConfig()
	c.Kubectl.Context = "hub"

	data, err := c.MarshalYAML()
	require.NoError(t, err)

	got, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestGetPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/drenv/config.yaml", config.GetPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/user")
	assert.Equal(t, "/home/user/.config/drenv/config.yaml", config.GetPath())
}
