package check

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/CodeLikeCrazE/functi/compiler/ast"
	"github.com/CodeLikeCrazE/functi/compiler/diag"
	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

type (
	Scope map[string]tp.Type

	// Checker synthesizes expression types and checks call sites.
	// Mismatches are accumulated in Diag, unbound variables stop the driver.
	Checker struct {
		Diag *diag.Sink

		rets map[*ast.Function]tp.Type
		busy map[*ast.Function]struct{}

		reported map[reportKey]struct{}
	}

	reportKey struct {
		Path string
		Off  int
		Msg  string
	}
)

func New(d *diag.Sink) *Checker {
	return &Checker{
		Diag:     d,
		rets:     make(map[*ast.Function]tp.Type),
		busy:     make(map[*ast.Function]struct{}),
		reported: make(map[reportKey]struct{}),
	}
}

// Check checks all the functions, it gives up after a fatal diagnostic.
func (c *Checker) Check(ctx context.Context, fns []*ast.Function) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "check: functions", "n", len(fns))
	defer func() {
		tr.Finish("diagnostics", c.Diag.Len())
	}()

	for _, f := range fns {
		c.CheckFunction(ctx, f)

		if c.Diag.Stopped() {
			return
		}
	}
}

func (c *Checker) CheckFunction(ctx context.Context, f *ast.Function) {
	f.MustResolve()

	if f.Kind != ast.Custom {
		return
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("check_trace") {
		tr.Printw("check function", "name", f.Name, "args", len(f.Args))
	}

	c.FuncReturn(f)
	c.CheckExpr(f.Body, ArgScope(f.Args))
}

// CheckExpr verifies call sites in x and its subexpressions.
func (c *Checker) CheckExpr(x ast.Expr, sc Scope) {
	switch x := ast.Unwrap(x).(type) {
	case *ast.Call:
		f := x.Func.MustResolve()

		if f.Kind == ast.Native && f.Native == ast.OpCall {
			c.ReturnType(x, sc)
		} else {
			c.checkArgs(x, f.Args, sc)
		}

		for _, a := range x.Args {
			c.CheckExpr(a, sc)
		}
	case *ast.Anon:
		c.CheckExpr(x.Body, sc.With(x.Args))
	}
}

func (c *Checker) checkArgs(x *ast.Call, params []ast.Arg, sc Scope) {
	if len(x.Args) != len(params) {
		c.report(x.Loc, diag.ArityMismatchError{Want: len(params), Got: len(x.Args)}, false)
	}

	for i, p := range params {
		if i == len(x.Args) {
			break
		}

		at := c.ReturnType(x.Args[i], sc)

		if !tp.CanCast(at, p.Type) {
			c.report(x.Args[i].Location(), diag.TypeMismatchError{From: at, To: p.Type}, false)
		}
	}
}

// ReturnType synthesizes the type of x under the scope.
func (c *Checker) ReturnType(x ast.Expr, sc Scope) tp.Type {
	switch x := ast.Unwrap(x).(type) {
	case *ast.Call:
		f := x.Func.MustResolve()

		if f.Kind == ast.Custom {
			return c.FuncReturn(f)
		}

		return c.nativeType(x, f, sc)
	case *ast.Var:
		t, ok := sc[x.Name]
		if !ok {
			c.report(x.Loc, diag.UnboundVariableError{Name: x.Name}, true)

			return tp.Any
		}

		return t
	case *ast.Number:
		return tp.Number
	case *ast.String:
		return tp.String
	case *ast.Anon:
		inner := sc.With(x.Args)

		f := tp.Func{
			In:  make([]tp.Type, len(x.Args)),
			Out: c.ReturnType(x.Body, inner),
		}

		for i, a := range x.Args {
			f.In[i] = a.Type
		}

		return f
	default:
		panic(x)
	}
}

// FuncReturn is the type of the function body under its own arguments.
// A function met again while its own type is being synthesized is any.
func (c *Checker) FuncReturn(f *ast.Function) tp.Type {
	if t, ok := c.rets[f]; ok {
		return t
	}

	if _, ok := c.busy[f]; ok {
		return tp.Any
	}

	c.busy[f] = struct{}{}

	t := c.ReturnType(f.Body, ArgScope(f.Args))

	delete(c.busy, f)
	c.rets[f] = t

	return t
}

func (c *Checker) nativeType(x *ast.Call, f *ast.Function, sc Scope) tp.Type {
	switch f.Native {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		return tp.Number
	case ast.OpCat:
		return tp.Null
	case ast.OpCall:
		return c.callType(x, sc)
	default:
		panic(f.Native)
	}
}

// callType types the call operation: the first argument is called with the rest.
func (c *Checker) callType(x *ast.Call, sc Scope) tp.Type {
	if len(x.Args) == 0 {
		c.report(x.Loc, diag.ArityMismatchError{Want: 1, Got: 0}, false)
		return tp.Null
	}

	ft, ok := c.ReturnType(x.Args[0], sc).(tp.Func)
	if !ok {
		c.report(x.Loc, diag.NotCallableError{Got: c.ReturnType(x.Args[0], sc)}, false)
		return tp.Null
	}

	args := x.Args[1:]

	if len(args) != len(ft.In) {
		c.report(x.Loc, diag.ArityMismatchError{Want: len(ft.In), Got: len(args)}, false)
	}

	for i, a := range args {
		if i == len(ft.In) {
			break
		}

		at := c.ReturnType(a, sc)

		if !tp.CanCast(at, ft.In[i]) {
			c.report(a.Location(), diag.TypeMismatchError{From: at, To: ft.In[i]}, false)
		}
	}

	return ft.Out
}

func (c *Checker) report(l diag.Location, err error, fatal bool) {
	key := reportKey{Path: l.Path, Off: l.Off, Msg: err.Error()}

	if _, ok := c.reported[key]; ok {
		return
	}

	c.reported[key] = struct{}{}

	if fatal {
		c.Diag.Error(l, err)
	} else {
		c.Diag.Delayed(l, err)
	}
}

func ArgScope(args []ast.Arg) Scope {
	return Scope(nil).With(args)
}

// With returns a copy of the scope extended with args.
func (sc Scope) With(args []ast.Arg) Scope {
	r := make(Scope, len(sc)+len(args))

	for k, v := range sc {
		r[k] = v
	}

	for _, a := range args {
		r[a.Name] = a.Type
	}

	return r
}
