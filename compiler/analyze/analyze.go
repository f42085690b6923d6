package analyze

import (
	"context"
	"fmt"
	"reflect"

	"tlog.app/go/tlog"

	"github.com/CodeLikeCrazE/functi/compiler/ast"
)

type (
	// Analyzer computes functions transitively called from an expression.
	// Results are kept in a side table keyed by expression identity,
	// the tree itself is never modified.
	Analyzer struct {
		// FollowClosures makes anonymous function bodies and relocated
		// expressions count as call sites too.
		FollowClosures bool

		deps map[ast.Expr][]*ast.Function
	}

	walker struct {
		*Analyzer

		seen   map[*ast.Function]struct{}
		walked map[*ast.Function]struct{}

		list []*ast.Function
	}

	UnsupportedExprError struct{ X ast.Expr }
)

func New() *Analyzer {
	return &Analyzer{
		deps: make(map[ast.Expr][]*ast.Function),
	}
}

// Analyze returns functions reachable from x, each once, in discovery order.
// Results are memoized.
func (a *Analyzer) Analyze(ctx context.Context, x ast.Expr) []*ast.Function {
	if l, ok := a.deps[x]; ok {
		return l
	}

	if a.deps == nil {
		a.deps = make(map[ast.Expr][]*ast.Function)
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "analyze: dependencies", "expr_type", tlog.NextAsType, x)

	w := &walker{
		Analyzer: a,
		seen:     make(map[*ast.Function]struct{}),
		walked:   make(map[*ast.Function]struct{}),
	}

	w.walk(ctx, x)

	a.deps[x] = w.list

	tr.Finish("deps", len(w.list))

	return w.list
}

func (w *walker) walk(ctx context.Context, x ast.Expr) {
	switch x := x.(type) {
	case *ast.Call:
		f := x.Func.MustResolve()

		w.add(ctx, f)

		if f.Kind == ast.Custom {
			if _, ok := w.walked[f]; !ok {
				w.walked[f] = struct{}{}
				w.walk(ctx, f.Body)
			}
		}

		for _, a := range x.Args {
			w.walk(ctx, a)
		}
	case *ast.Number, *ast.String, *ast.Var:
	case *ast.Relocated:
		if w.FollowClosures {
			w.walk(ctx, x.Of)
		}
	case *ast.Anon:
		if w.FollowClosures {
			w.walk(ctx, x.Body)
		}
	default:
		panic(NewUnsupportedExpr(x))
	}
}

func (w *walker) add(ctx context.Context, f *ast.Function) {
	if _, ok := w.seen[f]; ok {
		return
	}

	w.seen[f] = struct{}{}
	w.list = append(w.list, f)

	if tr := tlog.SpanFromContext(ctx); tr.If("deps_trace") {
		tr.Printw("dependency", "name", f.Name, "kind", f.Kind, "n", len(w.list))
	}
}

func NewUnsupportedExpr(x ast.Expr) UnsupportedExprError {
	return UnsupportedExprError{
		X: x,
	}
}

func (e UnsupportedExprError) Error() string {
	return fmt.Sprintf("unsupported expression: %v", reflect.TypeOf(e.X))
}
