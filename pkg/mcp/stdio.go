package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectionConfig describes how to launch the tool-providing server.
type ConnectionConfig struct {
	Command          string   `json:"command"`
	Args             []string `json:"args"`
	WorkingDirectory string   `json:"cwd"`
}

// LaunchMode selects how the working directory is applied to the server
// process.
type LaunchMode string

const (
	// LaunchNative sets the working directory on the process itself.
	LaunchNative LaunchMode = "native"
	// LaunchShell wraps the command in a shell that changes directory first.
	LaunchShell LaunchMode = "shell"
)

// Launch is the concrete program invocation derived from a ConnectionConfig.
type Launch struct {
	Path string
	Args []string
	Dir  string
}

// BuildLaunch resolves the program, arguments and directory for goos. In
// shell mode a non-empty working directory is applied by a shell prefix:
// cmd.exe on windows, sh everywhere else.
func BuildLaunch(goos string, mode LaunchMode, cfg ConnectionConfig) Launch {
	args := append([]string(nil), cfg.Args...)
	dir := strings.TrimSpace(cfg.WorkingDirectory)

	if mode != LaunchShell || dir == "" {
		return Launch{Path: cfg.Command, Args: args, Dir: dir}
	}

	if goos == "windows" {
		wrapped := append([]string{"/c", "cd", "/d", dir, "&&", cfg.Command}, args...)
		return Launch{Path: "cmd.exe", Args: wrapped}
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(cfg.Command))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	script := fmt.Sprintf("cd %s && %s", shellQuote(dir), strings.Join(parts, " "))
	return Launch{Path: "sh", Args: []string{"-c", script}}
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_@%+=:,./-", r):
		default:
			safe = false
		}
		if !safe {
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// StdioConfig describes how to spawn an MCP server using the stdio transport.
type StdioConfig struct {
	Launch Launch
	Env    []string

	// Stderr, when provided, receives the standard error stream of the
	// spawned server process. Defaults to os.Stderr if nil.
	Stderr io.Writer

	// ShutdownGrace bounds how long Close waits for the process to exit after
	// its stdin is closed before killing it.
	ShutdownGrace time.Duration

	Options Options
}

// Session couples a handshaken client with the transport it runs on.
type Session struct {
	Client    *Client
	Transport Transport
}

// StartStdio starts the configured command and binds the stdin/stdout pipes
// to the MCP client transport. ctx bounds the handshake only: the process
// outlives it and is stopped by closing the returned session's transport.
func StartStdio(ctx context.Context, cfg StdioConfig) (*Session, error) {
	if strings.TrimSpace(cfg.Launch.Path) == "" {
		return nil, errors.New("mcp: stdio command is required")
	}

	cmd := exec.Command(cfg.Launch.Path, cfg.Launch.Args...)
	cmd.Dir = cfg.Launch.Dir
	cmd.Env = append(os.Environ(), cfg.Env...)
	if cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdout pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp: start command: %w", err)
	}

	grace := cfg.ShutdownGrace
	if grace <= 0 {
		grace = 2 * time.Second
	}
	transport := &processTransport{
		stdioTransport: newStdioTransport(stdin, stdout),
		cmd:            cmd,
		exited:         make(chan struct{}),
		grace:          grace,
	}
	go transport.reap()

	// A server that never finished the handshake gets no grace period.
	transport.abort.Store(true)
	client, err := NewClient(ctx, transport, cfg.Options)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	transport.abort.Store(false)

	return &Session{Client: client, Transport: transport}, nil
}

// processTransport owns the server process: closing it closes the pipes and
// reaps the child, killing it when it ignores EOF on stdin.
type processTransport struct {
	*stdioTransport
	cmd    *exec.Cmd
	exited chan struct{}
	grace  time.Duration
	abort  atomic.Bool
	once   sync.Once
}

func (t *processTransport) reap() {
	// Wait closes the pipes once the process is gone, which unblocks any
	// pending reads.
	_ = t.cmd.Wait()
	close(t.exited)
}

func (t *processTransport) Close() error {
	err := t.stdioTransport.Close()
	t.once.Do(func() {
		if t.abort.Load() && t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		select {
		case <-t.exited:
		case <-time.After(t.grace):
			if t.cmd.Process != nil {
				_ = t.cmd.Process.Kill()
			}
			<-t.exited
		}
	})
	return err
}
