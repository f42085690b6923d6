package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/CodeLikeCrazE/functi/compiler"
	"github.com/CodeLikeCrazE/functi/compiler/config"
	"github.com/CodeLikeCrazE/functi/compiler/diag"
	"github.com/CodeLikeCrazE/functi/compiler/format"
)

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse files and print functions back as source",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "parse and type check a program",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile a program to JavaScript",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("out,o", "", "output file, - for stdout"),
		},
	}

	app := &cli.Command{
		Name:        "functi",
		Description: "functi is a compiler of functi programs to JavaScript",
		Flags: []*cli.Flag{
			cli.NewFlag("config", "", "config file (default: "+config.FileName+" in the current or a parent directory)"),
			cli.NewFlag("entry", "", "entry function"),
			cli.NewFlag("std", "", "standard library directory"),
			cli.NewFlag("seed", 0, "identifiers random seed"),
			cli.NewFlag("color", "", "colored diagnostics: auto, always, never"),
			cli.NewFlag("follow-closures", false, "emit functions referenced only from anonymous functions"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			checkCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func parseAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		st := compiler.NewConfig(cfg)

		err = st.ParseFile(ctx, a)
		if err != nil {
			return report(cfg, errors.Wrap(err, "parse %v", a))
		}

		b, err := format.Format(ctx, nil, st.Env.Functions())
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func checkAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	if len(c.Args) != 1 {
		return errors.New("expected one file, got %d", len(c.Args))
	}

	st := compiler.NewConfig(cfg)

	deps, err := st.CheckFile(ctx, c.Args[0])
	if err != nil {
		return report(cfg, errors.Wrap(err, "check %v", c.Args[0]))
	}

	for _, f := range deps {
		fmt.Printf("%v\n", f.Name)
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	if len(c.Args) != 1 {
		return errors.New("expected one file, got %d", len(c.Args))
	}

	if out := c.String("out"); out != "" {
		cfg.Output = out
	}

	st := compiler.NewConfig(cfg)

	var buf bytes.Buffer

	err = st.CompileFile(ctx, c.Args[0], &buf)
	if err != nil {
		return report(cfg, errors.Wrap(err, "compile %v", c.Args[0]))
	}

	if cfg.Output == "-" {
		_, err = os.Stdout.Write(buf.Bytes())
	} else {
		err = os.WriteFile(cfg.Output, buf.Bytes(), 0o644)
	}
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	tlog.Printw("compiled", "file", c.Args[0], "output", cfg.Output, "size", buf.Len())

	return nil
}

func setup(c *cli.Command) (ctx context.Context, cfg *config.Config, err error) {
	tlog.SetVerbosity(c.String("verbosity"))

	ctx = context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	path := c.String("config")
	if path == "" {
		path, err = config.Find(".")
		if err != nil {
			return nil, nil, errors.Wrap(err, "find config")
		}
	}

	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load config")
		}
	} else {
		cfg = config.Default()
	}

	if v := c.String("entry"); v != "" {
		cfg.Entry = v
	}

	if v := c.String("std"); v != "" {
		cfg.StdDir = v
	}

	if v := c.Int("seed"); v != 0 {
		cfg.Seed = int64(v)
	}

	if v := c.String("color"); v != "" {
		cfg.Color = config.Color(v)
	}

	if c.Bool("follow-closures") {
		cfg.FollowClosures = true
	}

	err = cfg.Validate()
	if err != nil {
		return nil, nil, errors.Wrap(err, "config")
	}

	tlog.Printw("config", "path", path, "entry", cfg.Entry, "std", cfg.StdDir, "color", cfg.Color)

	return ctx, cfg, nil
}

// report prints diagnostics to stderr and returns a short error instead.
func report(cfg *config.Config, err error) error {
	var l diag.List
	if !errors.As(err, &l) {
		return err
	}

	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	ferr := l.Format(os.Stderr, cfg.Color.UseColor(tty))
	if ferr != nil {
		return errors.Wrap(ferr, "print diagnostics")
	}

	return errors.New("%d problems found", len(l))
}
