package compiler

import (
	"context"
	"io"
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/CodeLikeCrazE/functi/compiler/analyze"
	"github.com/CodeLikeCrazE/functi/compiler/ast"
	"github.com/CodeLikeCrazE/functi/compiler/back"
	"github.com/CodeLikeCrazE/functi/compiler/check"
	"github.com/CodeLikeCrazE/functi/compiler/config"
	"github.com/CodeLikeCrazE/functi/compiler/diag"
	"github.com/CodeLikeCrazE/functi/compiler/env"
	"github.com/CodeLikeCrazE/functi/compiler/front"
	"github.com/CodeLikeCrazE/functi/compiler/load"
	"github.com/CodeLikeCrazE/functi/std"
)

type (
	Options struct {
		Entry          string
		Seed           int64
		FollowClosures bool
	}

	// State is one compilation.
	// It's the importer of every file parsed during it.
	State struct {
		Options

		Env      *env.Environment
		Diag     *diag.Sink
		Loader   load.Loader
		Resolver load.Resolver
	}

	EntryError struct {
		Name   string
		Reason string
	}
)

func New(l load.Loader, r load.Resolver, opts Options) *State {
	if opts.Entry == "" {
		opts.Entry = "main"
	}

	return &State{
		Options:  opts,
		Env:      env.New(),
		Diag:     new(diag.Sink),
		Loader:   l,
		Resolver: r,
	}
}

// NewConfig creates a compilation reading files from disk.
// The standard library is served from memory unless std_dir is set.
func NewConfig(c *config.Config) *State {
	var l load.Loader = load.Dir{}

	if c.StdDir == load.DefaultStdDir {
		l = load.Overlay{
			Root:  c.StdDir,
			FS:    std.FS,
			Files: l,
		}
	}

	return New(l, c.Resolver(), Options{
		Entry:          c.Entry,
		Seed:           c.Seed,
		FollowClosures: c.FollowClosures,
	})
}

func (s *State) CompileFile(ctx context.Context, name string, w io.Writer) (err error) {
	text, err := s.readMain(ctx, name)
	if err != nil {
		return err
	}

	return s.Compile(ctx, name, text, w)
}

func (s *State) CheckFile(ctx context.Context, name string) (deps []*ast.Function, err error) {
	text, err := s.readMain(ctx, name)
	if err != nil {
		return nil, err
	}

	return s.Check(ctx, name, text)
}

func (s *State) ParseFile(ctx context.Context, name string) (err error) {
	text, err := s.readMain(ctx, name)
	if err != nil {
		return err
	}

	return s.Parse(ctx, name, text)
}

// Compile writes JavaScript for the program to w.
// Nothing is written if any diagnostic is recorded.
func (s *State) Compile(ctx context.Context, name string, text []byte, w io.Writer) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "entry", s.Entry)
	defer tr.Finish("err", &err)

	deps, err := s.Check(ctx, name, text)
	if err != nil {
		return err
	}

	g := back.New(w, back.NewIDs(s.Seed))

	err = g.Generate(ctx, deps, s.Entry)
	if err != nil {
		return errors.Wrap(err, "generate")
	}

	if m := g.Missing(); len(m) != 0 {
		tr.Printw("functions referenced but not emitted", "funcs", m)
	}

	return nil
}

// Check parses the program, collects entry dependencies and checks types.
func (s *State) Check(ctx context.Context, name string, text []byte) (deps []*ast.Function, err error) {
	err = s.Parse(ctx, name, text)
	if err != nil {
		return nil, err
	}

	main, err := s.entry()
	if err != nil {
		return nil, err
	}

	a := analyze.New()
	a.FollowClosures = s.FollowClosures

	deps = append([]*ast.Function(nil), a.Analyze(ctx, main.Body)...)

	if !contains(deps, main) {
		deps = append(deps, main)
	}

	c := check.New(s.Diag)
	c.Check(ctx, s.Env.Functions())

	if err = s.Diag.Err(); err != nil {
		return nil, err
	}

	return deps, nil
}

// Parse parses the file with everything it imports.
func (s *State) Parse(ctx context.Context, name string, text []byte) (err error) {
	if name != "" {
		name = filepath.Clean(name)
		s.Env.MarkImported(name)
	}

	s.parse(ctx, name, text)

	if err = s.Diag.Err(); err != nil {
		return err
	}

	err = s.Env.Validate()
	if err != nil {
		return errors.Wrap(err, "parse")
	}

	return nil
}

// Import parses path unless it's already imported.
func (s *State) Import(ctx context.Context, path string, at diag.Location) {
	if !s.Env.MarkImported(path) {
		if tr := tlog.SpanFromContext(ctx); tr.If("import") {
			tr.Printw("already imported", "path", path)
		}

		return
	}

	text, err := s.Loader.Load(ctx, path)
	if err != nil {
		s.Diag.Error(at, diag.ReadFailureError{Path: path, Err: err})
		return
	}

	s.parse(ctx, path, text)
}

func (s *State) parse(ctx context.Context, path string, text []byte) {
	p := front.New(s.Env, s.Diag, path, text)
	p.Resolver = s.Resolver
	p.Importer = s

	p.ParseFile(ctx)
}

func (s *State) readMain(ctx context.Context, name string) ([]byte, error) {
	text, err := s.Loader.Load(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return text, nil
}

// entry finds the entry function. It must be a custom function with no arguments.
func (s *State) entry() (*ast.Function, error) {
	f, ok := s.Env.Lookup(s.Entry)
	if !ok {
		s.Diag.Error(diag.Location{}, EntryError{Name: s.Entry, Reason: "not defined"})
		return nil, s.Diag.Err()
	}

	switch {
	case f.Kind != ast.Custom:
		s.Diag.Error(f.Loc, EntryError{Name: s.Entry, Reason: "is " + f.Kind.String()})
	case len(f.Args) != 0:
		s.Diag.Error(f.Loc, EntryError{Name: s.Entry, Reason: "must take no arguments"})
	default:
		return f, nil
	}

	return nil, s.Diag.Err()
}

func contains(l []*ast.Function, f *ast.Function) bool {
	for _, x := range l {
		if x == f {
			return true
		}
	}

	return false
}

func (e EntryError) Error() string {
	return "entry function " + e.Name + " " + e.Reason
}
