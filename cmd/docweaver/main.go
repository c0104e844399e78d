// Command docweaver renders a Markdown template with directives and a
// context file into a standalone HTML document.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/grahms/docweaver"
	"github.com/grahms/docweaver/internal/contextfile"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

type config struct {
	templatePath string
	contextPath  string
	outPath      string
	title        string
	stylesheets  []string
	logLevel     slog.Level
	logFormat    string
}

// parseArgs returns the configuration, or an ExitError with code 2 on bad
// usage. A nil config with a nil error means help was printed.
func parseArgs(args []string, output io.Writer) (*config, error) {
	flagSet := flag.NewFlagSet("docweaver", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
docweaver - render a Markdown template into a standalone HTML document.

Usage:
  docweaver [options] TEMPLATE CONTEXT

Arguments:
  TEMPLATE  Markdown file, may contain %$ name(arg=value) $% directives.
  CONTEXT   Variables as a .json, .yaml/.yml or .hcl file.

Options:
`)
		flagSet.PrintDefaults()
	}

	var css stringList
	outFlag := flagSet.String("o", "", "Write the document to this file instead of standard output.")
	titleFlag := flagSet.String("title", "Docweaver", "Document title.")
	flagSet.Var(&css, "css", "Stylesheet to include in the head. Repeatable.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil
		}
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() != 2 {
		flagSet.Usage()
		return nil, &ExitError{Code: 2, Message: "expected TEMPLATE and CONTEXT arguments"}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevelFlag)); err != nil {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid log level %q", *logLevelFlag)}
	}
	format := strings.ToLower(*logFormatFlag)
	if format != "text" && format != "json" {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid log format %q", *logFormatFlag)}
	}

	return &config{
		templatePath: flagSet.Arg(0),
		contextPath:  flagSet.Arg(1),
		outPath:      *outFlag,
		title:        *titleFlag,
		stylesheets:  css,
		logLevel:     level,
		logFormat:    format,
	}, nil
}

func newLogger(w io.Writer, cfg *config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.logLevel}
	if cfg.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// run encapsulates the main application logic for easier testing.
func run(stdout, stderr io.Writer, args []string) error {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}
	logger := newLogger(stderr, cfg)

	template, err := os.ReadFile(cfg.templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	vars, err := contextfile.Load(cfg.contextPath, logger)
	if err != nil {
		return err
	}
	logger.Debug("Context loaded.", "variables", len(vars))

	doc, err := render(string(template), vars, cfg, logger)
	if err != nil {
		return err
	}

	if cfg.outPath == "" {
		_, err = io.WriteString(stdout, doc)
		return err
	}
	if err := os.WriteFile(cfg.outPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	logger.Info("Document written.", "path", cfg.outPath, "bytes", len(doc))
	return nil
}

func render(template string, vars docweaver.Context, cfg *config, logger *slog.Logger) (string, error) {
	md := docweaver.DefaultMarkdown(docweaver.WithLogger(logger))
	block, err := md.Block(template, vars)
	if err != nil {
		return "", err
	}
	page := docweaver.NewPage(
		docweaver.NewHead([]docweaver.Element{
			docweaver.Meta(docweaver.Attrs{{Key: "charset", Value: "utf-8"}}),
			docweaver.Title(cfg.title),
		}),
		docweaver.NewBody([]docweaver.Element{block}, docweaver.WithDeps(cfg.stylesheets...)),
	)
	r, err := page.Render()
	if err != nil {
		return "", err
	}
	logger.Debug("Page rendered.", "resources", len(r.Deps))
	return r.Markup, nil
}
