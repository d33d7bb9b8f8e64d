package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/examples/addon"
	"github.com/wippyai/napi-go/host"
)

type options struct {
	configPath string
	wasmFile   string
	wasmName   string
	funcName   string
	args       string
	list       bool
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML runtime config")
	flag.StringVar(&opts.wasmFile, "wasm", "", "Core wasm module to load next to the addon (optional)")
	flag.StringVar(&opts.wasmName, "wasm-name", "", "Name to bind the wasm exports under (default: file name)")
	flag.StringVar(&opts.funcName, "func", "", "Export to call, e.g. addon.add")
	flag.StringVar(&opts.args, "args", "", "Comma-separated arguments (numbers, true/false, null, strings)")
	flag.BoolVar(&opts.list, "list", false, "List exported functions and exit")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	interactive := flag.Bool("i", false, "Interactive mode with TUI")
	flag.Parse()

	if opts.funcName == "" && !opts.list && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: napi-run -func addon.add -args 1,2 [-wasm file.wasm] [-config runtime.yaml]")
		fmt.Fprintln(os.Stderr, "       napi-run -list")
		fmt.Fprintln(os.Stderr, "       napi-run -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// boot creates a runtime with the addon and the optional wasm module
// loaded.
func boot(ctx context.Context, opts options) (*host.Runtime, error) {
	cfg := host.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := host.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
		cfg.Logger = logger
		napi.SetLogger(logger)
	}
	cfg.OnUncaughtException = func(exc *host.Exception) {
		fmt.Fprintf(os.Stderr, "uncaught: %v\n", exc)
	}

	rt, err := host.New(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}

	mod := addon.New()
	if err := rt.LoadModule(ctx, mod.Name, mod.Entry(rt.API())); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("load %s: %w", mod.Name, err)
	}

	if opts.wasmFile != "" {
		data, err := os.ReadFile(opts.wasmFile)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("read file: %w", err)
		}
		name := opts.wasmName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(opts.wasmFile), filepath.Ext(opts.wasmFile))
		}
		if err := rt.LoadWasm(ctx, name, data); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("load wasm: %w", err)
		}
	}
	return rt, nil
}

// exportedFunctions lists every loaded export as module.name.
func exportedFunctions(ctx context.Context, rt *host.Runtime) ([]string, error) {
	mods, err := rt.Modules(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range mods {
		names, err := rt.Exports(ctx, m)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			out = append(out, m+"."+n)
		}
	}
	return out, nil
}

func run(opts options) error {
	ctx := context.Background()

	rt, err := boot(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	if opts.list {
		funcs, err := exportedFunctions(ctx, rt)
		if err != nil {
			return err
		}
		fmt.Printf("Exported functions:\n")
		for _, f := range funcs {
			fmt.Printf("  %s\n", f)
		}
		return nil
	}

	args := parseArgs(opts.args)
	fmt.Printf("Calling %s(%s)...\n", opts.funcName, opts.args)
	result, err := callAndSettle(ctx, rt, opts.funcName, args)
	if err != nil {
		return fmt.Errorf("call %s: %w", opts.funcName, err)
	}
	fmt.Printf("Result: %s\n", formatResult(result))

	// let callbacks scheduled by the call finish before closing
	idleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return rt.Idle(idleCtx)
}

// callAndSettle calls an export and awaits a returned promise.
func callAndSettle(ctx context.Context, rt *host.Runtime, path string, args []any) (any, error) {
	result, err := rt.Call(ctx, path, args...)
	if err != nil {
		return nil, err
	}
	if p, ok := result.(*host.Promise); ok {
		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return p.Await(waitCtx)
	}
	return result, nil
}

func parseArgs(s string) []any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = parseArg(strings.TrimSpace(p))
	}
	return args
}

func parseArg(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "undefined":
		return host.Undefined
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	return s
}

func formatResult(v any) string {
	switch r := v.(type) {
	case string:
		return strconv.Quote(r)
	case []byte:
		return fmt.Sprintf("<buffer %x>", r)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", r)
	}
}
