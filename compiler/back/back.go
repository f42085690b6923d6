package back

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/CodeLikeCrazE/functi/compiler/ast"
)

type (
	// Generator emits JavaScript for functions and the entry call.
	Generator struct {
		Out io.Writer
		IDs *IDs

		written    map[*ast.Function]struct{}
		referenced map[*ast.Function]struct{}

		b []byte
	}

	UnsupportedNativeError struct {
		Op ast.NativeOp
	}
)

var nativeBodies = map[ast.NativeOp]string{
	ast.OpAdd: "($a,$b){return $a + $b}",
	ast.OpSub: "($a,$b){return $a - $b}",
	ast.OpMul: "($a,$b){return $a * $b}",
	ast.OpDiv: "($a,$b){return $a / $b}",
	ast.OpCat: "($str){console.log($str)}",
}

func New(w io.Writer, ids *IDs) *Generator {
	if ids == nil {
		ids = NewIDs(0)
	}

	return &Generator{
		Out: w,
		IDs: ids,

		written:    make(map[*ast.Function]struct{}),
		referenced: make(map[*ast.Function]struct{}),
	}
}

// Generate writes every function of deps and then calls entry.
func (g *Generator) Generate(ctx context.Context, deps []*ast.Function, entry string) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: generate", "funcs", len(deps), "entry", entry)
	defer tr.Finish("err", &err)

	for _, f := range deps {
		err = g.WriteFunction(f)
		if err != nil {
			return errors.Wrap(err, "function %v", f.Name)
		}

		if tr.If("ids") {
			tr.Printw("function written", "name", f.Name, "id", g.IDs.ID(f.Name))
		}
	}

	return g.WriteMainCall(entry)
}

func (g *Generator) WriteFunction(f *ast.Function) (err error) {
	g.b, err = g.AppendFunction(g.b[:0], f)
	if err != nil {
		return err
	}

	g.written[f] = struct{}{}

	return g.flush()
}

// WriteMainCall calls the entry function with no arguments.
func (g *Generator) WriteMainCall(entry string) error {
	g.b = hfmt.Appendf(g.b[:0], "%s()\n", g.IDs.ID(entry))

	return g.flush()
}

func (g *Generator) AppendFunction(b []byte, f *ast.Function) (_ []byte, err error) {
	f.MustResolve()

	switch f.Kind {
	case ast.Custom:
		b = hfmt.Appendf(b, "function %s(", g.IDs.ID(f.Name))
		b = appendParams(b, f.Args)
		b = append(b, "){ return "...)

		b, err = g.AppendExpr(b, f.Body)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		b = append(b, "}\n"...)
	case ast.Native:
		body, ok := nativeBodies[f.Native]
		if !ok {
			return nil, UnsupportedNativeError{Op: f.Native}
		}

		b = hfmt.Appendf(b, "function %s%s\n", g.IDs.ID(f.Name), body)
	}

	return b, nil
}

func (g *Generator) AppendExpr(b []byte, x ast.Expr) (_ []byte, err error) {
	switch x := ast.Unwrap(x).(type) {
	case *ast.Call:
		f := x.Func.MustResolve()

		if f.Kind == ast.Native && f.Native == ast.OpCall {
			return nil, UnsupportedNativeError{Op: f.Native}
		}

		g.referenced[f] = struct{}{}

		b = append(b, g.IDs.ID(f.Name)...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ',')
			}

			b, err = g.AppendExpr(b, a)
			if err != nil {
				return nil, errors.Wrap(err, "%v arg %d", f.Name, i)
			}
		}

		b = append(b, ')')
	case *ast.Number:
		b = appendNumber(b, x.Value)
	case *ast.String:
		q, err := json.Marshal(x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "quote string")
		}

		b = append(b, q...)
	case *ast.Var:
		b = append(b, x.Name...)
	case *ast.Anon:
		b = append(b, "function ("...)
		b = appendParams(b, x.Args)
		b = append(b, "){ return "...)

		b, err = g.AppendExpr(b, x.Body)
		if err != nil {
			return nil, errors.Wrap(err, "anon")
		}

		b = append(b, '}')
	default:
		return nil, errors.New("unsupported expression: %T", x)
	}

	return b, nil
}

// Missing lists functions called by written code but not written themselves.
func (g *Generator) Missing() (r []string) {
	for f := range g.referenced {
		if _, ok := g.written[f]; !ok {
			r = append(r, f.Name)
		}
	}

	sort.Strings(r)

	return r
}

func (g *Generator) flush() error {
	_, err := g.Out.Write(g.b)

	return err
}

func appendParams(b []byte, args []ast.Arg) []byte {
	for i, a := range args {
		if i != 0 {
			b = append(b, ',')
		}

		b = append(b, a.Name...)
	}

	return b
}

func appendNumber(b []byte, v float64) []byte {
	switch {
	case math.IsInf(v, 1):
		return append(b, "Infinity"...)
	case math.IsInf(v, -1):
		return append(b, "-Infinity"...)
	case math.IsNaN(v):
		return append(b, "NaN"...)
	}

	return strconv.AppendFloat(b, v, 'g', -1, 64)
}

func (e UnsupportedNativeError) Error() string {
	return "unsupported native function: " + e.Op.String()
}
