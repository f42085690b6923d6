package check

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeLikeCrazE/functi/compiler/ast"
	"github.com/CodeLikeCrazE/functi/compiler/diag"
	"github.com/CodeLikeCrazE/functi/compiler/env"
	"github.com/CodeLikeCrazE/functi/compiler/front"
	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

func parse(t *testing.T, src string) *env.Environment {
	t.Helper()

	e := env.New()
	d := new(diag.Sink)

	front.New(e, d, "", []byte(src)).ParseFile(context.Background())
	require.False(t, d.Failed(), "%v", d.Err())

	return e
}

func checkAll(t *testing.T, src string) (*env.Environment, *Checker) {
	t.Helper()

	e := parse(t, src)

	c := New(new(diag.Sink))
	c.Check(context.Background(), e.Functions())

	return e, c
}

func mismatches(t *testing.T, c *Checker) (r []diag.TypeMismatchError) {
	t.Helper()

	for _, d := range c.Diag.Diagnostics() {
		var m diag.TypeMismatchError
		require.True(t, errors.As(d.Err, &m), "%v", d)

		r = append(r, m)
	}

	return r
}

func TestCheckClean(t *testing.T) {
	_, c := checkAll(t, `
function sq number n => core/mul n n
function main => core/cat (sq 5)
`)

	assert.False(t, c.Diag.Failed(), "%v", c.Diag.Err())
}

func TestCheckMismatchAtArgument(t *testing.T) {
	src := `function f number a => core/add a "x"`

	_, c := checkAll(t, src)

	l := c.Diag.Diagnostics()
	require.Len(t, l, 1, "%v", l)
	assert.False(t, l[0].Fatal)
	assert.Equal(t, strings.Index(src, `"x"`), l[0].Loc.Off)

	m := mismatches(t, c)
	assert.Equal(t, tp.String, m[0].From)
	assert.Equal(t, tp.Number, m[0].To)
	assert.Equal(t, "cannot cast from string to number", m[0].Error())
}

func TestCheckNested(t *testing.T) {
	_, c := checkAll(t, `
function s => "str"
function g => core/cat core/add 1 core/mul s 2
`)

	m := mismatches(t, c)
	require.Len(t, m, 1)
	assert.Equal(t, tp.String, m[0].From)
}

func TestCheckAnonReturn(t *testing.T) {
	e, c := checkAll(t, `function main => anon number x => x`)

	require.False(t, c.Diag.Failed(), "%v", c.Diag.Err())

	main, _ := e.Lookup("main")

	assert.Equal(t, tp.Func{In: []tp.Type{tp.Number}, Out: tp.Number}, c.FuncReturn(main))
	assert.Equal(t, tp.Func{In: []tp.Type{tp.Number}, Out: tp.Number}, c.ReturnType(main.Body, nil))
}

func TestCheckAnonClosure(t *testing.T) {
	e, c := checkAll(t, `
function adder string a => anon number b => core/add a b
`)

	m := mismatches(t, c)
	require.Len(t, m, 1)
	assert.Equal(t, tp.String, m[0].From)

	f, _ := e.Lookup("adder")
	assert.Equal(t, tp.Func{In: []tp.Type{tp.Number}, Out: tp.Number}, c.FuncReturn(f))
}

func TestCheckFunctionTypesAreExact(t *testing.T) {
	_, c := checkAll(t, `
function app anon [number] => number g => 1
function ok => app anon [number] x => 1
function bad => app anon [any] x => 1
`)

	m := mismatches(t, c)
	require.Len(t, m, 1)
	assert.Equal(t, tp.Func{In: []tp.Type{tp.Array{Elem: tp.Any}}, Out: tp.Number}, m[0].From)
}

func TestCheckCustomReturnUsesOwnScope(t *testing.T) {
	e, c := checkAll(t, `
function id string n => n
function f number n => core/add 1 id "x"
`)

	m := mismatches(t, c)
	require.Len(t, m, 1)
	assert.Equal(t, tp.String, m[0].From)

	f, _ := e.Lookup("f")
	assert.Equal(t, tp.Number, c.FuncReturn(f))
}

func TestCheckRecursion(t *testing.T) {
	e, c := checkAll(t, `function loop number n => loop core/sub n 1`)

	require.False(t, c.Diag.Failed(), "%v", c.Diag.Err())

	f, _ := e.Lookup("loop")
	assert.Equal(t, tp.Any, c.FuncReturn(f))
}

func TestCheckUnboundIsFatal(t *testing.T) {
	f := &ast.Function{
		Kind: ast.Custom,
		Name: "f",
		Args: []ast.Arg{{Name: "x", Type: tp.Number}},
		Body: &ast.Var{Name: "y"},
	}

	g := &ast.Function{
		Kind: ast.Custom,
		Name: "g",
		Body: &ast.Var{Name: "z"},
	}

	c := New(new(diag.Sink))
	c.Check(context.Background(), []*ast.Function{f, g})

	assert.True(t, c.Diag.Stopped())

	l := c.Diag.Diagnostics()
	require.Len(t, l, 1)
	assert.True(t, l[0].Fatal)
	assert.Equal(t, diag.UnboundVariableError{Name: "y"}, l[0].Err)
}

func TestCheckPendingPanics(t *testing.T) {
	c := New(new(diag.Sink))

	assert.Panics(t, func() {
		c.CheckFunction(context.Background(), ast.NewPending("f", nil, diag.Location{}))
	})
}

func callOp() *ast.Function {
	return ast.NewNative(ast.OpCall, "core/call", ast.Arg{Name: "f", Type: tp.Any})
}

func TestCallOperation(t *testing.T) {
	fn := &ast.Anon{
		Args: []ast.Arg{{Name: "x", Type: tp.Number}},
		Body: &ast.Relocated{Of: &ast.Var{Name: "x"}},
	}

	c := New(new(diag.Sink))

	x := &ast.Call{Func: callOp(), Args: []ast.Expr{fn, &ast.Number{Value: 1}}}

	assert.Equal(t, tp.Number, c.ReturnType(x, nil))
	c.CheckExpr(x, nil)
	assert.False(t, c.Diag.Failed(), "%v", c.Diag.Err())

	x = &ast.Call{Func: callOp(), Args: []ast.Expr{fn, &ast.String{Value: "s"}}}

	c.CheckExpr(x, nil)
	m := mismatches(t, c)
	require.Len(t, m, 1)
	assert.Equal(t, tp.String, m[0].From)
}

func TestCallOperationArity(t *testing.T) {
	fn := &ast.Anon{Body: &ast.Number{Value: 1}}

	c := New(new(diag.Sink))

	x := &ast.Call{Func: callOp(), Args: []ast.Expr{fn, &ast.Number{Value: 1}}}
	assert.Equal(t, tp.Number, c.ReturnType(x, nil))

	l := c.Diag.Diagnostics()
	require.Len(t, l, 1)
	assert.Equal(t, diag.ArityMismatchError{Want: 0, Got: 1}, l[0].Err)
}

func TestCallOperationNotCallable(t *testing.T) {
	c := New(new(diag.Sink))

	x := &ast.Call{Func: callOp(), Args: []ast.Expr{&ast.Number{Value: 1}}}
	assert.Equal(t, tp.Null, c.ReturnType(x, nil))

	l := c.Diag.Diagnostics()
	require.Len(t, l, 1)
	assert.Equal(t, diag.NotCallableError{Got: tp.Number}, l[0].Err)
}

func TestScopeWithCopies(t *testing.T) {
	sc := Scope{"a": tp.Number}

	in := sc.With([]ast.Arg{{Name: "b", Type: tp.String}, {Name: "a", Type: tp.Boolean}})

	assert.Equal(t, Scope{"a": tp.Number}, sc)
	assert.Equal(t, Scope{"a": tp.Boolean, "b": tp.String}, in)
}
