package osupdate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/updatectl/pkg/pkgmanager"
)

// fakeExecutor answers "test -x <binary>" detection probes for a chosen
// package manager and records every other command it's asked to run.
type fakeExecutor struct {
	detectBinary string
	calls        [][]string
}

func (f *fakeExecutor) Execute(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	full := append([]string{cmd}, args...)
	f.calls = append(f.calls, full)
	if cmd == "sh" && len(args) == 2 && args[0] == "-c" && strings.Contains(args[1], "test -x "+f.detectBinary) {
		return []byte("found\n"), nil
	}
	if cmd == "sh" && len(args) == 2 && args[0] == "-c" && strings.HasPrefix(args[1], "test -x ") {
		return []byte(""), nil
	}
	return []byte(""), nil
}

func TestResolveStepPlain(t *testing.T) {
	bin, args := resolveStep(pkgmanager.UpgradeStep{Bin: "dnf", Args: []string{"upgrade", "-y"}, Sudo: true})
	assert.Equal(t, "sudo", bin)
	assert.Equal(t, []string{"dnf", "upgrade", "-y"}, args)
}

func TestResolveStepWithEnv(t *testing.T) {
	bin, args := resolveStep(pkgmanager.UpgradeStep{
		Bin:  "apt-get",
		Args: []string{"full-upgrade", "-y"},
		Sudo: true,
		Env:  map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
	})
	assert.Equal(t, "sudo", bin)
	assert.Equal(t, []string{"env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "full-upgrade", "-y"}, args)
}

func TestCleanNoFlagsReportsNothingToDo(t *testing.T) {
	exec := &fakeExecutor{detectBinary: "/usr/bin/apt"}
	out, err := Clean(context.Background(), exec, false, false, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to clean")
}

func TestCleanDryRunDoesNotExecute(t *testing.T) {
	exec := &fakeExecutor{detectBinary: "/usr/bin/apt"}
	out, err := Clean(context.Background(), exec, true, true, false)
	require.NoError(t, err)
	assert.Contains(t, out, "Would run 2 cleanup step(s)")

	for _, call := range exec.calls {
		assert.NotContains(t, call, "clean")
		assert.NotContains(t, call, "autoremove")
	}
}

func TestCleanExecuteRunsSteps(t *testing.T) {
	exec := &fakeExecutor{detectBinary: "/usr/bin/apt"}
	out, err := Clean(context.Background(), exec, true, false, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Ran 1 cleanup step(s)")

	found := false
	for _, call := range exec.calls {
		if len(call) >= 3 && call[0] == "sudo" && call[1] == "apt-get" && call[2] == "clean" {
			found = true
		}
	}
	assert.True(t, found, "expected a sudo apt-get clean call, got %v", exec.calls)
}
