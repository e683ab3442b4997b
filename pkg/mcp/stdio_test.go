package mcp

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLaunch(t *testing.T) {
	cfg := ConnectionConfig{Command: "uv", Args: []string{"run", "main.py"}, WorkingDirectory: "/srv/legal mcp"}

	tests := []struct {
		name string
		goos string
		mode LaunchMode
		cfg  ConnectionConfig
		want Launch
	}{
		{
			name: "native keeps command and sets dir",
			goos: "linux",
			mode: LaunchNative,
			cfg:  cfg,
			want: Launch{Path: "uv", Args: []string{"run", "main.py"}, Dir: "/srv/legal mcp"},
		},
		{
			name: "shell on unix",
			goos: "linux",
			mode: LaunchShell,
			cfg:  cfg,
			want: Launch{Path: "sh", Args: []string{"-c", "cd '/srv/legal mcp' && uv run main.py"}},
		},
		{
			name: "shell on darwin",
			goos: "darwin",
			mode: LaunchShell,
			cfg:  ConnectionConfig{Command: "python", Args: []string{"-m", "server", "it's"}, WorkingDirectory: "/tmp"},
			want: Launch{Path: "sh", Args: []string{"-c", `cd /tmp && python -m server 'it'\''s'`}},
		},
		{
			name: "shell on windows",
			goos: "windows",
			mode: LaunchShell,
			cfg:  ConnectionConfig{Command: "uv", Args: []string{"run", "main.py"}, WorkingDirectory: `C:\legal`},
			want: Launch{Path: "cmd.exe", Args: []string{"/c", "cd", "/d", `C:\legal`, "&&", "uv", "run", "main.py"}},
		},
		{
			name: "shell without dir runs directly",
			goos: "windows",
			mode: LaunchShell,
			cfg:  ConnectionConfig{Command: "uv", Args: []string{"run"}},
			want: Launch{Path: "uv", Args: []string{"run"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildLaunch(tt.goos, tt.mode, tt.cfg))
		})
	}
}

func TestBuildLaunchCopiesArgs(t *testing.T) {
	cfg := ConnectionConfig{Command: "uv", Args: []string{"run"}}
	launch := BuildLaunch("linux", LaunchNative, cfg)
	launch.Args[0] = "changed"
	assert.Equal(t, "run", cfg.Args[0])
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "main.py", shellQuote("main.py"))
	assert.Equal(t, "'a b'", shellQuote("a b"))
	assert.Equal(t, "'$HOME'", shellQuote("$HOME"))
}

func TestStartStdioRequiresCommand(t *testing.T) {
	_, err := StartStdio(context.Background(), StdioConfig{})
	require.Error(t, err)
}

func TestStartStdioReportsMissingBinary(t *testing.T) {
	_, err := StartStdio(context.Background(), StdioConfig{
		Launch: Launch{Path: "wakalat-definitely-not-a-real-binary"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start command")
}

func TestConnectHonoursDeadlineOfSilentServer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a unix sleep binary")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	conn := NewConnection()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	status := conn.Connect(ctx, ConnectionConfig{Command: "sleep", Args: []string{"5"}})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 1500*time.Millisecond)
	assert.False(t, status.Connected)
	assert.False(t, status.Connecting)
	assert.Contains(t, status.Error, "deadline exceeded")

	done := make(chan struct{})
	go func() {
		conn.Disconnect()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Disconnect blocked after a timed out connect")
	}
}
