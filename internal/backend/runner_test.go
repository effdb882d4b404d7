package backend

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

// scriptedRunner answers commands whose joined arguments start with a
// registered prefix. The first matching rule wins.
type scriptedRunner struct {
	mu    sync.Mutex
	rules []rule
	calls []Command
}

type rule struct {
	prefix string
	out    string
	err    error
}

func (s *scriptedRunner) on(prefix, out string, err error) *scriptedRunner {
	s.rules = append(s.rules, rule{prefix: prefix, out: out, err: err})
	return s
}

func (s *scriptedRunner) Run(_ context.Context, c Command) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	joined := strings.Join(c.Args, " ")
	for _, r := range s.rules {
		if strings.HasPrefix(joined, r.prefix) {
			if r.err != nil {
				return nil, r.err
			}
			return []byte(r.out), nil
		}
	}
	return nil, &CommandError{Command: c.Name + " " + joined, ExitCode: 127, Stderr: "unscripted command"}
}

func (s *scriptedRunner) called(prefix string) []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Command
	for _, c := range s.calls {
		if strings.HasPrefix(strings.Join(c.Args, " "), prefix) {
			out = append(out, c)
		}
	}
	return out
}

func stderr(msg string) error {
	return &CommandError{Command: "tool", ExitCode: 1, Stderr: msg}
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func TestExecRunnerReturnsStdout(t *testing.T) {
	requireShell(t)
	out, err := ExecRunner{Timeout: 5 * time.Second}.Run(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-c", "cat; printf \"$EXTRA\""},
		Stdin: []byte("hello "),
		Env:   []string{"EXTRA=world"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestExecRunnerFoldsStderrIntoError(t *testing.T) {
	requireShell(t)
	_, err := ExecRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo 'Vault is locked.' >&2; exit 3"},
	})
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "Vault is locked.", cmdErr.Stderr)
}

func TestExecRunnerTimeout(t *testing.T) {
	requireShell(t)
	_, err := ExecRunner{Timeout: 50 * time.Millisecond}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "sleep 5"},
	})
	assert.ErrorIs(t, err, kerrors.ErrTimeout)
}

func TestExecRunnerCancelledContextIsNotATimeout(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExecRunner{Timeout: time.Second}.Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, kerrors.ErrTimeout)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Command{Name: "dotvault-no-such-tool"})
	assert.ErrorIs(t, err, kerrors.ErrBackendUnavailable)
}

func TestCommandStringHidesArguments(t *testing.T) {
	c := Command{Name: "bw", Args: []string{"edit", "item", "abc123", "eyJub3RlcyI6InNlY3JldCJ9"}}
	assert.Equal(t, "bw edit item", c.String())

	c = Command{Name: "op", Args: []string{"whoami", "--format", "json"}}
	assert.Equal(t, "op whoami", c.String())
}

func TestNoteEncodingRoundTrip(t *testing.T) {
	for _, content := range [][]byte{
		[]byte("user=alice\n"),
		{0xff, 0xfe, 0x00, 0x01},
		[]byte(binaryPrefix + "looks encoded"),
	} {
		decoded, err := decodeNote(encodeNote(content))
		require.NoError(t, err)
		assert.Equal(t, content, decoded)
	}
	assert.Equal(t, "plain text", encodeNote([]byte("plain text")))
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("keepass", Options{})
	assert.ErrorIs(t, err, kerrors.ErrUnknownBackend)
}
