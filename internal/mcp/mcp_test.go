package mcp

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deixis/gdbridge/internal/config"
	"github.com/deixis/gdbridge/internal/engine"
	"github.com/deixis/gdbridge/internal/executor"
	"github.com/deixis/gdbridge/internal/lsp"
	"github.com/deixis/gdbridge/internal/report"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeEngine writes a shell script that mimics the engine binary's CLI
// surface closely enough for tool-level tests.
func fakeEngine(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine")
	script := `#!/bin/sh
last=""
for a in "$@"; do last="$a"; done
if [ "$1" = "--version" ]; then echo "4.2.1.test"; exit 0; fi
if [ "$1" = "--headless" ] && [ "$2" = "--export-list" ]; then printf 'Linux/X11\nWeb\n'; exit 0; fi
if [ -f "$last" ]; then exec sh "$last"; fi
echo "ran $*"
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// deadPort returns a loopback port with nothing listening on it.
func deadPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// setup creates a full gdbridge MCP server + client over in-memory transports.
func setup(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	project := t.TempDir()
	cfg := &config.Config{Bin: fakeEngine(t), Project: project}

	store := report.NewLRUStore(5, report.NewDiskStore())
	exec := &executor.Executor{
		Bin:       cfg.BinPath(),
		Project:   project,
		Timeout:   10 * time.Second,
		MaxOutput: cfg.MaxOutputBytes(),
		Store:     store,
	}
	eng := &engine.Engine{Config: cfg, Exec: exec}
	client := &lsp.Client{Host: "127.0.0.1", Port: deadPort(t), ProjectRoot: project}

	server := NewServer(eng, client, store)

	ct, st := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	mc := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := mc.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *sdkmcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// --- executor-backed tools ---

func TestGdVersion(t *testing.T) {
	cs := setup(t)
	text := resultText(callTool(t, cs, "gd_version", nil))
	if !strings.Contains(text, "Engine version: 4.2.1.test") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestGdRunHeadless(t *testing.T) {
	cs := setup(t)
	text := resultText(callTool(t, cs, "gd_run_headless", nil))
	if !strings.Contains(text, "Status: PASS") {
		t.Errorf("expected Status: PASS, got:\n%s", text)
	}
	if !strings.Contains(text, "ran --headless") {
		t.Errorf("expected engine output, got:\n%s", text)
	}
	if !strings.Contains(text, "Run: ") {
		t.Errorf("expected a run ID, got:\n%s", text)
	}
}

func TestGdRunScript_MissingPath(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_run_script", nil)
	if !res.IsError {
		t.Error("expected IsError for missing path")
	}
}

func TestGdEval(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_eval", map[string]any{
		"source": "echo from-staged-script",
	})
	text := resultText(res)
	if !strings.Contains(text, "Status: PASS") {
		t.Errorf("expected Status: PASS, got:\n%s", text)
	}
	if !strings.Contains(text, "from-staged-script") {
		t.Errorf("expected staged script output, got:\n%s", text)
	}
}

func TestGdEval_MissingSource(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_eval", nil)
	if !res.IsError {
		t.Error("expected IsError for missing source")
	}
}

func TestGdStop(t *testing.T) {
	cs := setup(t)
	text := resultText(callTool(t, cs, "gd_stop", nil))
	if !strings.Contains(text, "Status: PASS") {
		t.Errorf("expected Status: PASS, got:\n%s", text)
	}
}

func TestGdExport(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_export", map[string]any{
		"preset": "Linux/X11",
		"output": "build/game.x86_64",
	})
	text := resultText(res)
	if !strings.Contains(text, `Exported preset "Linux/X11"`) {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestGdExport_MissingPreset(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_export", map[string]any{"output": "build/x"})
	if !res.IsError {
		t.Error("expected IsError for missing preset")
	}
}

func TestGdListPresets(t *testing.T) {
	cs := setup(t)
	text := resultText(callTool(t, cs, "gd_list_presets", nil))
	if !strings.Contains(text, "Linux/X11") || !strings.Contains(text, "Web") {
		t.Errorf("expected both presets, got:\n%s", text)
	}
}

func TestGdRunLog(t *testing.T) {
	cs := setup(t)
	runText := resultText(callTool(t, cs, "gd_run_headless", nil))

	var runID string
	for _, line := range strings.Split(runText, "\n") {
		if strings.HasPrefix(line, "Run: ") {
			runID = strings.TrimPrefix(line, "Run: ")
			break
		}
	}
	if runID == "" {
		t.Fatalf("no run ID in output:\n%s", runText)
	}

	logText := resultText(callTool(t, cs, "gd_run_log", map[string]any{"run_id": runID}))
	if !strings.Contains(logText, "ran --headless") {
		t.Errorf("expected stored output, got:\n%s", logText)
	}
	if !strings.Contains(logText, "Args: --headless") {
		t.Errorf("expected recorded args, got:\n%s", logText)
	}
}

func TestGdRunLog_UnknownID(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_run_log", map[string]any{"run_id": "nope"})
	if !res.IsError {
		t.Error("expected IsError for unknown run ID")
	}
}

// --- language-server-backed tools degrade without a peer ---

func TestGdDiagnostics_NoLanguageServer(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_diagnostics", map[string]any{"path": "/proj/main.gd"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("diagnostics must degrade, not error: %s", text)
	}
	if !strings.Contains(text, "No diagnostics reported") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestGdHover_NoLanguageServer(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "gd_hover", map[string]any{"path": "/proj/main.gd", "line": 0, "column": 0})
	if res.IsError {
		t.Fatal("hover must degrade, not error")
	}
	if !strings.Contains(resultText(res), "No hover information") {
		t.Errorf("unexpected output:\n%s", resultText(res))
	}
}
