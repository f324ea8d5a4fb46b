// Command gdbridge drives a Godot project: engine runs over a supervised
// subprocess, code intelligence over the editor's language server, both
// exposed as MCP tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/deixis/gdbridge"
	"github.com/deixis/gdbridge/internal/config"
	"github.com/deixis/gdbridge/internal/engine"
	"github.com/deixis/gdbridge/internal/executor"
	"github.com/deixis/gdbridge/internal/lsp"
	gdmcp "github.com/deixis/gdbridge/internal/mcp"
	"github.com/deixis/gdbridge/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("gdbridge: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(args)
	case "run":
		err = runMain(args)
	case "export":
		err = exportMain(args)
	case "version":
		fmt.Println(gdbridge.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "gdbridge: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: gdbridge <command> [flags]

Commands:
  mcp         Start the MCP server
  run         Run the project (or a script) and print the result
  export      Export the project with a named preset
  version     Print the version
  help        Show this help

Use "gdbridge <command> -h" for command-specific flags.`)
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(gdmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := buildLogger(*debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	_, _, eng, client, store, err := buildComponents(logger)
	if err != nil {
		return err
	}

	server := gdmcp.NewServer(eng, client, store)
	defer client.Disconnect()

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	headless := fs.Bool("headless", false, "run without a display server")
	script := fs.String("script", "", "run a script file instead of the main scene")
	timeout := fs.Duration("timeout", 0, "override the configured timeout (e.g. 2m)")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, _, eng, _, _, err := buildCLIComponents(*timeout)
	if err != nil {
		return err
	}

	var res *executor.Result
	switch {
	case *script != "":
		res = eng.RunScript(ctx, *script)
	case *headless:
		res = eng.RunHeadless(ctx)
	default:
		res = eng.RunProject(ctx)
	}

	printResult(res)
	if !res.Success {
		os.Exit(1)
	}
	return nil
}

// --- export ---

func exportMain(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	preset := fs.String("preset", "", "export preset name (required)")
	output := fs.String("output", "", "output path (required)")
	debug := fs.Bool("debug", false, "use the debug export template")
	timeout := fs.Duration("timeout", 0, "override the configured timeout (e.g. 10m)")
	_ = fs.Parse(args)

	if *preset == "" || *output == "" {
		return fmt.Errorf("export: -preset and -output are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, _, eng, _, _, err := buildCLIComponents(*timeout)
	if err != nil {
		return err
	}

	res := eng.Export(ctx, *preset, *output, *debug)
	printResult(res)
	if !res.Success {
		os.Exit(1)
	}
	return nil
}

// --- shared ---

func buildLogger(debug bool) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func buildComponents(logger *zap.Logger) (*config.Config, *executor.Executor, *engine.Engine, *lsp.Client, report.Store, error) {
	workdir, err := os.Getwd()
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("determining working directory: %w", err)
	}

	cfg, err := config.Load(workdir)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	store := report.NewLRUStore(10, report.NewDiskStore())
	sugar := logger.Sugar()

	exec := &executor.Executor{
		Bin:       cfg.BinPath(),
		Project:   cfg.Project,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
		Store:     store,
		Log:       sugar.Named("executor"),
	}
	eng := &engine.Engine{Config: cfg, Exec: exec, Log: sugar.Named("engine")}

	host, port := cfg.LSPAddr()
	client := &lsp.Client{
		Host:        host,
		Port:        port,
		ProjectRoot: cfg.Project,
		Log:         sugar.Named("lsp"),
	}

	return cfg, exec, eng, client, store, nil
}

func buildCLIComponents(timeoutOverride time.Duration) (*config.Config, *executor.Executor, *engine.Engine, *lsp.Client, report.Store, error) {
	logger := zap.NewNop()
	cfg, exec, eng, client, store, err := buildComponents(logger)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	if timeoutOverride > 0 {
		exec.Timeout = timeoutOverride
	}
	return cfg, exec, eng, client, store, nil
}

func printResult(res *executor.Result) {
	if res.Success {
		fmt.Println("ok")
	} else {
		fmt.Println("FAIL")
		if res.Error != "" {
			fmt.Printf("  %s\n", res.Error)
		}
	}
	fmt.Printf("  exit code: %d\n", res.ExitCode)
	fmt.Printf("  run: %s\n", res.RunID)
	if res.Stdout != "" {
		fmt.Println()
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" && res.Stderr != res.Error {
		fmt.Println()
		fmt.Fprint(os.Stderr, res.Stderr)
	}
}
