// Package executor implements the remote execution substrate (spec.md C2):
// a single interface that abstracts local process spawning and
// SSH-transported execution, with bounded timeouts, stderr handling, and
// argument quoting.
//
// Grounded on original_source/updatectl/src/executor.rs, the most mature of
// the corpus's several executor variants (120s timeout via a wrapping
// deadline, accept-new host-key policy), generalized onto Go's
// exec.CommandContext the way cuemby-warren/pkg/health/exec.go uses it for
// its own command-based health checker.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/fleetops/updatectl/pkg/errs"
	"github.com/fleetops/updatectl/pkg/log"
	"github.com/fleetops/updatectl/pkg/server"
)

// DefaultTimeout is the hard deadline for one command invocation, local or
// remote, per spec.md §4.1/§5.
const DefaultTimeout = 120 * time.Second

// Executor runs one command, local or over SSH, returning captured stdout.
// A non-zero exit is not itself an error (spec.md §4.1/§8): several package
// managers use non-zero exit codes to report state, not failure.
type Executor interface {
	Execute(ctx context.Context, cmd string, args ...string) ([]byte, error)
}

// RemoteExecutor implements Executor for one Server, dispatching to a local
// or SSH transport depending on Server.IsLocal. This is the "small sum type
// dispatched at call sites" spec.md §9 asks for: one concrete type, two
// internal code paths.
type RemoteExecutor struct {
	Server     server.Server
	SSHKeyPath string
	Timeout    time.Duration
}

// New builds a RemoteExecutor for the given server with the default 120s
// timeout.
func New(s server.Server, sshKeyPath string) *RemoteExecutor {
	return &RemoteExecutor{Server: s, SSHKeyPath: sshKeyPath, Timeout: DefaultTimeout}
}

// Execute runs cmd with args, locally or over SSH depending on the target
// server.
func (e *RemoteExecutor) Execute(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	if e.Server.IsLocal() {
		return e.executeLocal(ctx, cmd, args)
	}
	return e.executeSSH(ctx, cmd, args)
}

func (e *RemoteExecutor) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

func (e *RemoteExecutor) executeLocal(ctx context.Context, cmd string, args []string) ([]byte, error) {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	c := exec.CommandContext(cctx, cmd, args...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	runErr := c.Run()

	logger := log.WithComponent("executor").With().Str("server", e.Server.Name).Str("cmd", cmd).Logger()

	if cctx.Err() == context.DeadlineExceeded {
		return nil, errs.Timeout(e.Server.Name, time.Since(start))
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// The process never started: binary missing, permission denied
			// before exec, etc. — a Spawn failure, distinct from a non-zero
			// exit, which is tolerated.
			return nil, errs.Spawn(e.Server.Name, runErr)
		}
		// Non-zero exit is not itself an error (spec.md §4.1): DNF's
		// check-update uses exit 100 to mean "updates available".
		logger.Debug().Int("exit_code", exitErr.ExitCode()).Str("stderr", stderr.String()).Msg("local command exited non-zero")
	}

	return stdout.Bytes(), nil
}

func (e *RemoteExecutor) executeSSH(ctx context.Context, cmd string, args []string) ([]byte, error) {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	remoteLine := quoteCommandLine(cmd, args)

	sshArgs := []string{
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=accept-new",
	}
	if e.SSHKeyPath != "" {
		sshArgs = append(sshArgs, "-i", e.SSHKeyPath)
	}
	sshArgs = append(sshArgs, e.Server.SSHHost, remoteLine)

	c := exec.CommandContext(cctx, "ssh", sshArgs...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	runErr := c.Run()

	logger := log.WithComponent("executor").With().Str("server", e.Server.Name).Str("cmd", cmd).Logger()

	if cctx.Err() == context.DeadlineExceeded {
		return nil, errs.Timeout(e.Server.Name, time.Since(start))
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, errs.Spawn(e.Server.Name, runErr)
		}

		stderrText := stderr.String()
		if strings.Contains(stderrText, "Permission denied") || strings.Contains(stderrText, "Connection refused") {
			return nil, errs.Transport(e.Server.Name, fmt.Errorf("%s", strings.TrimSpace(stderrText)))
		}

		// Any other non-zero exit conflates the remote command's own exit
		// status with SSH transport status; only the two unambiguous
		// transport failures above short-circuit the caller (spec.md §4.1).
		logger.Debug().Int("exit_code", exitErr.ExitCode()).Str("stderr", stderrText).Msg("remote command exited non-zero")
	}

	return stdout.Bytes(), nil
}

// quoteCommandLine joins cmd and args with single-space separation,
// single-quoting any argument containing a space, '*', or '$' (embedded
// single quotes escaped as '\''), per spec.md §4.1.
func quoteCommandLine(cmd string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(cmd))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if strings.ContainsAny(arg, " *$") {
		escaped := strings.ReplaceAll(arg, "'", `'\''`)
		return "'" + escaped + "'"
	}
	return arg
}
