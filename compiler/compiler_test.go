package compiler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeLikeCrazE/functi/compiler/config"
	"github.com/CodeLikeCrazE/functi/compiler/diag"
	"github.com/CodeLikeCrazE/functi/compiler/load"
	"github.com/CodeLikeCrazE/functi/std"
)

func newState(files load.Map) *State {
	return New(files, load.NewResolver("", ""), Options{Seed: 1})
}

func diagErr[T error](t *testing.T, s *State) (r T) {
	t.Helper()

	for _, d := range s.Diag.Diagnostics() {
		if errors.As(d.Err, &r) {
			return r
		}
	}

	require.Fail(t, "no diagnostic", "want %T, got %v", r, s.Diag.Err())

	return
}

func TestCompileSquare(t *testing.T) {
	s := newState(load.Map{
		"p/main.functi": []byte(`
function sq number n => core/mul n n
function main => core/cat (sq 5)
`),
	})

	var b bytes.Buffer

	err := s.CompileFile(context.Background(), "p/main.functi", &b)
	require.NoError(t, err)

	out := b.String()
	assert.True(t, strings.HasPrefix(out, "function coreca"), out)
	assert.True(t, strings.HasSuffix(out, "()\n"), out)
	assert.Equal(t, 5, strings.Count(out, "\n"), out)

	node, err := exec.LookPath("node")
	if err != nil {
		t.Skip("node is not installed")
	}

	js := filepath.Join(t.TempDir(), "output.js")
	require.NoError(t, os.WriteFile(js, b.Bytes(), 0o644))

	res, err := exec.Command(node, js).CombinedOutput()
	require.NoError(t, err, "%s", res)
	assert.Equal(t, "25\n", string(res))
}

func TestCompileIdempotentImport(t *testing.T) {
	s := newState(load.Map{
		"p/main.functi": []byte(`
import "a.functi"
import "b.functi"
import "a.functi"
import "main.functi"
function main => core/cat core/add a/f 1 b/g 2
`),
		"p/a.functi": []byte(`
import "lib/c.functi"
function a/f number n => lib/c n
`),
		"p/b.functi": []byte(`
import "lib/c.functi"
function b/g number n => lib/c n
`),
		"p/lib/c.functi": []byte(`
function lib/c number n => core/mul n 2
import "../a.functi"
`),
	})

	deps, err := s.CheckFile(context.Background(), "p/main.functi")
	require.NoError(t, err)

	for _, p := range []string{"p/main.functi", "p/a.functi", "p/b.functi", "p/lib/c.functi"} {
		assert.True(t, s.Env.Imported(p), p)
	}

	var names []string
	for _, f := range deps {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"core/cat", "core/add", "a/f", "lib/c", "core/mul", "b/g", "main"}, names)
}

func TestCompileStd(t *testing.T) {
	s := New(load.Overlay{Root: load.DefaultStdDir, FS: std.FS}, load.NewResolver("", ""), Options{Seed: 2})

	var b bytes.Buffer

	err := s.Compile(context.Background(), "", []byte(`
import "std@io"
import "std@math"
function main => io/show-square math/avg 4 6
`), &b)
	require.NoError(t, err)

	assert.True(t, s.Env.Imported(filepath.Join(load.DefaultStdDir, "math.functi")))
	assert.Contains(t, b.String(), "function mathsquare$")
	assert.Contains(t, b.String(), "function mathavg$")
	assert.NotContains(t, b.String(), "function mathcube$")
}

func TestCompileReadFailure(t *testing.T) {
	s := newState(load.Map{
		"main.functi": []byte(`import "missing.functi"
function main => core/cat 1`),
	})

	var b bytes.Buffer

	err := s.CompileFile(context.Background(), "main.functi", &b)
	require.Error(t, err)
	assert.Empty(t, b.String())

	assert.True(t, s.Diag.Stopped())

	rf := diagErr[diag.ReadFailureError](t, s)
	assert.Equal(t, "missing.functi", rf.Path)
	assert.ErrorIs(t, rf, load.ErrNotExist)

	err = newState(nil).CompileFile(context.Background(), "main.functi", &b)
	assert.ErrorIs(t, err, load.ErrNotExist)
}

func TestCompileTypeMismatchWritesNothing(t *testing.T) {
	s := newState(nil)

	var b bytes.Buffer

	err := s.Compile(context.Background(), "", []byte(`function main => core/cat core/add 1 "x"`), &b)
	require.Error(t, err)
	assert.Empty(t, b.String())

	m := diagErr[diag.TypeMismatchError](t, s)
	assert.Equal(t, "cannot cast from string to number", m.Error())
}

func TestCheckSameBasenameKeepsBoth(t *testing.T) {
	s := newState(load.Map{
		"p/main.functi": []byte(`import "a.functi"
import "lib/a.functi"
function main => core/cat 1`),
		"p/a.functi":     []byte(`function f => core/add 1 "x"`),
		"p/lib/a.functi": []byte(`function g => core/add 1 "x"`),
	})

	_, err := s.CheckFile(context.Background(), "p/main.functi")
	require.Error(t, err)

	var paths []string

	for _, d := range s.Diag.Diagnostics() {
		var m diag.TypeMismatchError
		require.True(t, errors.As(d.Err, &m), "%v", d)

		paths = append(paths, d.Loc.Path)
	}

	assert.ElementsMatch(t, []string{"p/a.functi", "p/lib/a.functi"}, paths)
}

func TestCompileParseErrorsStop(t *testing.T) {
	s := newState(nil)

	_, err := s.Check(context.Background(), "", []byte(`
function main => core/cat nope
function other => core/cat 1
`))
	require.Error(t, err)

	diagErr[diag.UnresolvedIdentifierError](t, s)

	_, ok := s.Env.Lookup("other")
	assert.True(t, ok)
}

func TestEntryChecks(t *testing.T) {
	for _, tc := range []struct {
		entry  string
		reason string
	}{
		{"start", "not defined"},
		{"sq", "must take no arguments"},
		{"core/cat", "is native"},
	} {
		s := New(nil, load.NewResolver("", ""), Options{Entry: tc.entry})

		_, err := s.Check(context.Background(), "", []byte(`function sq number n => core/mul n n`))
		require.Error(t, err, tc.entry)

		e := diagErr[EntryError](t, s)
		assert.Equal(t, EntryError{Name: tc.entry, Reason: tc.reason}, e)
	}
}

func TestEntryIsItsOwnDependency(t *testing.T) {
	s := newState(nil)

	deps, err := s.Check(context.Background(), "", []byte(`function main => core/cat main`))
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "core/cat", deps[0].Name)
	assert.Equal(t, "main", deps[1].Name)
}

func TestNewConfig(t *testing.T) {
	s := NewConfig(config.Default())
	assert.IsType(t, load.Overlay{}, s.Loader)
	assert.Equal(t, "main", s.Entry)

	c := config.Default()
	c.StdDir = "lib"
	c.Entry = "start"

	s = NewConfig(c)
	assert.Equal(t, load.Dir{}, s.Loader)
	assert.Equal(t, "start", s.Entry)
	assert.Equal(t, load.Resolver{StdDir: "lib", Ext: load.DefaultExt}, s.Resolver)
}
