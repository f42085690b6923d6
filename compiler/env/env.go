package env

import (
	"sort"
	"sync"

	"tlog.app/go/errors"

	"github.com/CodeLikeCrazE/functi/compiler/ast"
	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

type (
	// Environment is the global function registry of one compilation.
	// Name and path checks are atomic, so parsers may share it.
	Environment struct {
		mu sync.Mutex

		funcs    map[string]*ast.Function
		imported map[string]struct{}
	}
)

func New() *Environment {
	e := &Environment{
		funcs:    make(map[string]*ast.Function),
		imported: make(map[string]struct{}),
	}

	num := func(n string) ast.Arg { return ast.Arg{Name: n, Type: tp.Number} }

	e.declareNative(ast.OpAdd, "core/add", num("a"), num("b"))
	e.declareNative(ast.OpSub, "core/sub", num("a"), num("b"))
	e.declareNative(ast.OpMul, "core/mul", num("a"), num("b"))
	e.declareNative(ast.OpDiv, "core/div", num("a"), num("b"))
	e.declareNative(ast.OpCat, "core/cat", ast.Arg{Name: "val", Type: tp.Any})

	return e
}

func (e *Environment) declareNative(op ast.NativeOp, name string, args ...ast.Arg) {
	e.funcs[name] = ast.NewNative(op, name, args...)
}

func (e *Environment) Lookup(name string) (*ast.Function, bool) {
	defer e.mu.Unlock()
	e.mu.Lock()

	f, ok := e.funcs[name]

	return f, ok
}

// Declare registers f under its name.
// An existing function is replaced and reported as a duplicate.
func (e *Environment) Declare(f *ast.Function) (dup bool) {
	defer e.mu.Unlock()
	e.mu.Lock()

	_, dup = e.funcs[f.Name]
	e.funcs[f.Name] = f

	return dup
}

// Remove unregisters f if it is still the function registered under its name.
func (e *Environment) Remove(f *ast.Function) {
	defer e.mu.Unlock()
	e.mu.Lock()

	if e.funcs[f.Name] == f {
		delete(e.funcs, f.Name)
	}
}

// MarkImported reports whether path is imported for the first time.
func (e *Environment) MarkImported(path string) (first bool) {
	defer e.mu.Unlock()
	e.mu.Lock()

	if _, ok := e.imported[path]; ok {
		return false
	}

	e.imported[path] = struct{}{}

	return true
}

func (e *Environment) Imported(path string) bool {
	defer e.mu.Unlock()
	e.mu.Lock()

	_, ok := e.imported[path]

	return ok
}

// Functions returns registered functions ordered by name.
func (e *Environment) Functions() []*ast.Function {
	defer e.mu.Unlock()
	e.mu.Lock()

	l := make([]*ast.Function, 0, len(e.funcs))

	for _, f := range e.funcs {
		l = append(l, f)
	}

	sort.Slice(l, func(i, j int) bool { return l[i].Name < l[j].Name })

	return l
}

// Validate checks that parsing left no pending declarations behind.
func (e *Environment) Validate() error {
	for _, f := range e.Functions() {
		if f.Kind == ast.Pending {
			return errors.New("function %v left pending", f.Name)
		}
	}

	return nil
}
