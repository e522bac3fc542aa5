package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/updatectl/pkg/server"
)

func TestQuoteCommandLine(t *testing.T) {
	assert.Equal(t, "echo hello", quoteCommandLine("echo", []string{"hello"}))
	assert.Equal(t, `echo 'hello world'`, quoteCommandLine("echo", []string{"hello world"}))
	assert.Equal(t, `echo it's`, quoteCommandLine("echo", []string{"it's"}))
	assert.Equal(t, `echo '*.log'`, quoteCommandLine("echo", []string{"*.log"}))
	assert.Equal(t, `echo '$HOME'`, quoteCommandLine("echo", []string{"$HOME"}))
}

func TestExecuteLocalToleratesNonZeroExit(t *testing.T) {
	e := New(server.Local(), "")
	out, err := e.Execute(context.Background(), "sh", "-c", "echo hi; exit 7")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(out))
}

func TestExecuteLocalSpawnError(t *testing.T) {
	e := New(server.Local(), "")
	_, err := e.Execute(context.Background(), "this-binary-does-not-exist-xyz")
	assert.Error(t, err)
}

func TestExecuteLocalTimeout(t *testing.T) {
	e := New(server.Local(), "")
	e.Timeout = 50 * time.Millisecond
	_, err := e.Execute(context.Background(), "sleep", "5")
	assert.Error(t, err)
}
