package kubectl_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramendr/drenv/pkg/execs"
	"github.com/ramendr/drenv/pkg/kubectl"
	"github.com/ramendr/drenv/pkg/log"
)

// fakeKubectl returns a client running script with sh instead of kubectl.
// The kubectl arguments are available to the script as "$@".
func fakeKubectl(script string, opts ...kubectl.ClientOpt) *kubectl.Client {
	opts = append([]kubectl.ClientOpt{kubectl.WithCommand("sh", "-c", script, "kubectl")}, opts...)

	return kubectl.New(opts...)
}

func TestExecRunner_Gather(t *testing.T) {
	t.Parallel()

	script := `
echo '{"level":"info","ts":1700000000.25,"msg":"Gathering from 2 clusters","clusters":2}' >&2
echo 'panic: this is not json' >&2
echo '{"level":"error","msg":"cannot gather","cluster":"dr2"}' >&2
`

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := log.NewContext(t.Context(), logger)

	c := fakeKubectl(script)

	err := c.Gather(ctx, []string{"dr1", "dr2"}, kubectl.WithName("test-gather"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg="Gathering from 2 clusters" name=test-gather clusters=2`)
	assert.Contains(t, out, `level=DEBUG msg="[test-gather] panic: this is not json"`)
	assert.Contains(t, out, `level=ERROR msg="cannot gather" name=test-gather cluster=dr2`)
}

func TestExecRunner_WatchClose(t *testing.T) {
	t.Parallel()

	pidFile := filepath.Join(t.TempDir(), "pid")

	// Print one record, then block like "kubectl get --watch" does.
	c := fakeKubectl(`echo $$ > "$PIDFILE"; echo Pending; exec sleep 60`,
		kubectl.WithLog(func(string) {}))

	lines, err := c.Watch(t.Context(), "pod/busybox", kubectl.WithEnv("PIDFILE="+pidFile, "PATH="+os.Getenv("PATH")))
	require.NoError(t, err)

	require.True(t, lines.Next())
	assert.Equal(t, "Pending", lines.Text())

	pid, err := os.ReadFile(pidFile)
	require.NoError(t, err)

	start := time.Now()

	require.NoError(t, lines.Close())
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.False(t, lines.Next())
	require.NoError(t, lines.Err())

	// The process was reaped, so its pid no longer exists.
	_, err = os.Stat(filepath.Join("/proc", string(bytes.TrimSpace(pid))))
	assert.True(t, os.IsNotExist(err), "process must be terminated")
}

func TestExecRunner_WatchTimeout(t *testing.T) {
	t.Parallel()

	c := fakeKubectl(`echo Pending; exec sleep 60`)

	lines, err := c.Watch(t.Context(), "pod", kubectl.WithTimeout(200*time.Millisecond))
	require.NoError(t, err)

	defer lines.Close()

	var got []string
	for line := range execs.Lines(lines) {
		got = append(got, line)
	}

	assert.Equal(t, []string{"Pending"}, got)
	require.ErrorIs(t, lines.Err(), execs.ErrTimeout)
}

func TestExecRunner_WatchModeFailure(t *testing.T) {
	t.Parallel()

	var got collector

	c := fakeKubectl(`echo "$1 started"; echo "error: $1 failed" >&2; exit 1`, kubectl.WithLog(got.log))

	err := c.Rollout(t.Context(), []string{"status", "deploy/busybox"})

	var execErr *execs.Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.ExitCode)
	assert.Equal(t, "error: rollout failed", execErr.Stderr)
	assert.Equal(t, []string{"rollout started"}, got.lines)
}

func TestExecRunner_Version(t *testing.T) {
	t.Parallel()

	c := fakeKubectl(`echo "Client Version: v1.33.0"; echo "connection refused" >&2; exit 1`)

	out, err := c.Version(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Client Version: v1.33.0\n", out)
}
