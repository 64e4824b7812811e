package cgihost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"

	"github.com/gur-shatz/go-cgi/internal/log"
)

// killGrace is how long a timed-out script gets between SIGTERM and SIGKILL.
const killGrace = 2 * time.Second

// ErrTimeout is returned when a script outlives its timeout.
var ErrTimeout = errors.New("script timed out")

// Invocation describes one script run.
type Invocation struct {
	Path        string        // absolute script path
	Interpreter string        // e.g. "python3" or "perl -T"; empty runs Path directly
	Env         []string      // complete environment, see MetaVars
	Stdin       []byte        // request body
	Timeout     time.Duration // zero means no limit
}

// Result is the outcome of a script that ran to completion.
type Result struct {
	Stdout   []byte
	ExitCode int
	Elapsed  time.Duration
}

// Execute runs the script in its own process group with the body on stdin.
// Stderr is forwarded line by line to the logger. A non-zero exit is not an
// error; check Result.ExitCode.
func Execute(ctx context.Context, inv Invocation, logger *log.Logger) (*Result, error) {
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	name := inv.Path
	var args []string
	if inv.Interpreter != "" {
		fields, err := shlex.Split(inv.Interpreter)
		if err != nil || len(fields) == 0 {
			return nil, fmt.Errorf("interpreter %q: invalid command line", inv.Interpreter)
		}
		name = fields[0]
		args = append(fields[1:], inv.Path)
	}

	scriptName := filepath.Base(inv.Path)
	stderr := &lineWriter{emit: func(line string) { logger.Script(scriptName, line) }}
	var stdout bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = filepath.Dir(inv.Path)
	cmd.Env = inv.Env
	cmd.Stdin = bytes.NewReader(inv.Stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process, syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	stderr.Flush()

	if ctx.Err() != nil {
		// Take down anything the script left behind in its group. Setpgid
		// makes the group id equal to the leader's pid.
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w after %s", scriptName, ErrTimeout, inv.Timeout)
		}
		return nil, fmt.Errorf("run %s: %w", scriptName, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", scriptName, err)
		}
		return &Result{Stdout: stdout.Bytes(), ExitCode: exitErr.ExitCode(), Elapsed: elapsed}, nil
	}
	return &Result{Stdout: stdout.Bytes(), Elapsed: elapsed}, nil
}

// killProcessGroup sends a signal to the entire process group.
func killProcessGroup(p *os.Process, sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(p.Pid)
	if err != nil {
		return p.Signal(sig)
	}
	return syscall.Kill(-pgid, sig)
}

// lineWriter splits written bytes into lines. Only os/exec's stderr copier
// writes to it.
type lineWriter struct {
	emit func(string)
	buf  []byte
}

func (this *lineWriter) Write(p []byte) (int, error) {
	this.buf = append(this.buf, p...)
	for {
		i := bytes.IndexByte(this.buf, '\n')
		if i < 0 {
			break
		}
		this.emit(strings.TrimRight(string(this.buf[:i]), "\r"))
		this.buf = this.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing partial line.
func (this *lineWriter) Flush() {
	if len(this.buf) > 0 {
		this.emit(string(this.buf))
		this.buf = nil
	}
}
