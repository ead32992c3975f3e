package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/config"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	"github.com/kailas-cloud/archivist/internal/logger"
	compileuc "github.com/kailas-cloud/archivist/internal/usecase/compile"
	"github.com/kailas-cloud/archivist/internal/version"
)

func rulesFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "rules",
		Usage:    "Path to the rules YAML file",
		Required: true,
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate a rules file and list its namespaces",
		Flags: []cli.Flag{rulesFlag()},
		Action: func(_ context.Context, c *cli.Command) error {
			return check(c.Root().Writer, c.String("rules"))
		},
	}
}

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile a JSON filter list for a namespace",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			rulesFlag(),
			&cli.StringFlag{
				Name:     "namespace",
				Usage:    "Namespace to compile for",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log compilation details to stderr",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("debug") {
				log, err := logger.NewLogger("local", "debug")
				if err != nil {
					return fmt.Errorf("create logger: %w", err)
				}
				defer func() { _ = log.Sync() }()
				ctx = logger.ContextWithLogger(ctx, log)
			}
			in, closeIn, err := openInput(c.Root().Reader, c.Args().First())
			if err != nil {
				return err
			}
			defer closeIn()
			return compile(ctx, c.Root().Writer, in, c.String("rules"), namespace.Namespace(c.String("namespace")))
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(_ context.Context, c *cli.Command) error {
			_, err := fmt.Fprintln(c.Root().Writer, version.String("filterc"))
			return err
		},
	}
}

func check(w io.Writer, rulesPath string) error {
	registry, err := config.LoadRules(rulesPath)
	if err != nil {
		return err
	}

	all, err := compileuc.New(registry).Describe()
	if err != nil {
		return err
	}
	for _, d := range all {
		types := make([]string, len(d.FilterTypes))
		for i, ft := range d.FilterTypes {
			types[i] = ft.Type
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", d.Namespace, strings.Join(types, ", ")); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "ok: %d namespaces\n", len(all))
	return err
}

func compile(ctx context.Context, w io.Writer, in io.Reader, rulesPath string, ns namespace.Namespace) error {
	registry, err := config.LoadRules(rulesPath)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read filters: %w", err)
	}
	filters, err := parseFilters(data)
	if err != nil {
		return err
	}

	compiled, err := compileuc.New(registry).Compile(ctx, ns, filters)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("Compiled groups", zap.Any("groups", compiled.Groups))

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(compiled)
}

// parseFilters accepts {"filters": [...]} or a bare array.
func parseFilters(data []byte) ([]filter.Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var fs []filter.Filter
		if err := json.Unmarshal(data, &fs); err != nil {
			return nil, fmt.Errorf("parse filters: %w", err)
		}
		return fs, nil
	}
	var req struct {
		Filters []filter.Filter `json:"filters"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse filters: %w", err)
	}
	return req.Filters, nil
}

func openInput(stdin io.Reader, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		return stdin, func() {}, nil
	}
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, nil, fmt.Errorf("open filters: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
