package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/tsolve/internal/config"
	"github.com/funvibe/tsolve/internal/fixture"
	"github.com/funvibe/tsolve/internal/pipeline"
)

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [-v] <command> [args]\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  check <file.yaml|dir>...   run fixture queries, exit 1 on any failure")
	fmt.Fprintln(w, "  dump <file.yaml> <Type>    print the evaluated type and its interned data")
	fmt.Fprintln(w, "  version                    print the solver version")
}

// colorEnabled reports whether stdout is a terminal.
func colorEnabled() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, color string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + colorReset
}

// collectFixtures expands directories into the fixture files they contain.
func collectFixtures(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), config.FixtureFileExt) {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return files, nil
}

func handleCheck(args []string, logger *slog.Logger) int {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s check <file.yaml> [file2...]\n", os.Args[0])
		return 1
	}
	files, err := collectFixtures(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Println("No fixture files found")
		return 0
	}

	// Files are independent; each gets its own interner and solver.
	results := make([]*pipeline.PipelineContext, len(files))
	g, gctx := errgroup.WithContext(context.Background())
	for i, file := range files {
		g.Go(func() error {
			ctx := pipeline.NewPipelineContext(gctx, file)
			ctx.Logger = logger.With("file", file)
			results[i] = pipeline.Default().Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	status := 0
	passed, failed := 0, 0
	for _, ctx := range results {
		fmt.Printf("\n=== %s ===\n", ctx.FilePath)
		for _, err := range ctx.Errors {
			fmt.Printf("%s %s\n", paint("ERROR", colorRed), err)
			status = 1
		}
		for _, o := range ctx.Outcomes {
			if o.Passed {
				passed++
				fmt.Println(paint("PASS", colorGreen), o.Case.Name)
				continue
			}
			failed++
			status = 1
			fmt.Printf("%s %s (line %d): got %s, want %s\n",
				paint("FAIL", colorRed), o.Case.Name, o.Case.Line, o.Got, o.Want)
		}
	}
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	return status
}

func handleDump(args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s dump <file.yaml> <TypeName>\n", os.Args[0])
		return 1
	}
	suite, err := fixture.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	t, ok := suite.Lookup(args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no type %q in %s (known: %s)\n",
			args[1], args[0], strings.Join(suite.Names(), ", "))
		return 1
	}
	solver := suite.NewSolver()
	fmt.Print(suite.Interner.Dump(solver.Evaluate(t)))
	return 0
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if os.Getenv("TSOLVE_TEST_MODE") == "1" {
		config.IsTestMode = true
	}

	level := slog.LevelInfo
	var args []string
	for _, arg := range os.Args[1:] {
		if arg == "-v" || arg == "--verbose" {
			level = slog.LevelDebug
			continue
		}
		args = append(args, arg)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if len(args) == 0 {
		usage(os.Stderr)
		os.Exit(1)
	}

	switch args[0] {
	case "check":
		os.Exit(handleCheck(args[1:], logger))
	case "dump":
		os.Exit(handleDump(args[1:]))
	case "version", "-version", "--version":
		fmt.Printf("tsolve %s\n", config.Version)
	case "help", "-help", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		usage(os.Stderr)
		os.Exit(1)
	}
}
