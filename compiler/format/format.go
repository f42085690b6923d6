package format

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/CodeLikeCrazE/functi/compiler/ast"
	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

// Format appends x printed back as source text.
// x is a function, a list of functions, an expression or a type.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	switch x := x.(type) {
	case []*ast.Function:
		return formatFile(ctx, b, x)
	case *ast.Function:
		return formatFunc(ctx, b, x)
	case ast.Expr:
		return formatExpr(ctx, b, x, false)
	case tp.Type:
		return formatType(b, x)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

// formatFile prints custom functions in declaration order, natives are builtin.
func formatFile(ctx context.Context, b []byte, fns []*ast.Function) (_ []byte, err error) {
	fns = append([]*ast.Function(nil), fns...)

	sort.SliceStable(fns, func(i, j int) bool {
		if fns[i].Loc.Path != fns[j].Loc.Path {
			return fns[i].Loc.Path < fns[j].Loc.Path
		}

		return fns[i].Loc.Off < fns[j].Loc.Off
	})

	for _, f := range fns {
		if f.Kind == ast.Native {
			continue
		}

		b, err = formatFunc(ctx, b, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, f *ast.Function) (_ []byte, err error) {
	f.MustResolve()

	if f.Kind != ast.Custom {
		return nil, errors.New("%v function %v has no source", f.Kind, f.Name)
	}

	b = hfmt.Appendf(b, "function %s ", f.Name)

	b, err = formatArgs(b, f.Args)
	if err != nil {
		return nil, err
	}

	b, err = formatExpr(ctx, b, f.Body, false)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = append(b, '\n')

	return b, nil
}

// formatArgs appends args and the arrow.
func formatArgs(b []byte, args []ast.Arg) (_ []byte, err error) {
	for _, a := range args {
		b, err = formatType(b, a.Type)
		if err != nil {
			return nil, errors.Wrap(err, "arg %v", a.Name)
		}

		b = hfmt.Appendf(b, " %s ", a.Name)
	}

	b = append(b, "=> "...)

	return b, nil
}

// formatExpr appends x. Nested calls with arguments and anon functions
// are put in parentheses when they are arguments themselves.
func formatExpr(ctx context.Context, b []byte, x ast.Expr, arg bool) (_ []byte, err error) {
	switch x := ast.Unwrap(x).(type) {
	case *ast.Call:
		f := x.Func.MustResolve()

		paren := arg && len(x.Args) != 0

		if paren {
			b = append(b, '(')
		}

		b = append(b, f.Name...)

		for i, a := range x.Args {
			b = append(b, ' ')

			b, err = formatExpr(ctx, b, a, true)
			if err != nil {
				return nil, errors.Wrap(err, "%v arg %d", f.Name, i)
			}
		}

		if paren {
			b = append(b, ')')
		}
	case *ast.Number:
		b, err = appendNumber(b, x.Value)
		if err != nil {
			return nil, err
		}
	case *ast.String:
		b, err = appendString(b, x.Value)
		if err != nil {
			return nil, err
		}
	case *ast.Var:
		b = append(b, x.Name...)
	case *ast.Anon:
		if arg {
			b = append(b, '(')
		}

		b = append(b, "anon "...)

		b, err = formatArgs(b, x.Args)
		if err != nil {
			return nil, errors.Wrap(err, "anon")
		}

		b, err = formatExpr(ctx, b, x.Body, false)
		if err != nil {
			return nil, errors.Wrap(err, "anon")
		}

		if arg {
			b = append(b, ')')
		}
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

func formatType(b []byte, t tp.Type) (_ []byte, err error) {
	switch t := t.(type) {
	case tp.Basic:
		return append(b, t.Name()...), nil
	case tp.Array:
		b = append(b, '[')

		b, err = formatType(b, t.Elem)
		if err != nil {
			return nil, err
		}

		return append(b, ']'), nil
	case tp.Func:
		b = append(b, "anon "...)

		for _, in := range t.In {
			b, err = formatType(b, in)
			if err != nil {
				return nil, err
			}

			b = append(b, ' ')
		}

		b = append(b, "=> "...)

		return formatType(b, t.Out)
	default:
		return nil, errors.New("type has no syntax: %v", t.Name())
	}
}

func appendNumber(b []byte, v float64) ([]byte, error) {
	switch {
	case math.IsNaN(v):
		return nil, errors.New("NaN has no syntax")
	case math.IsInf(v, 1):
		return append(b, "1e999"...), nil
	case math.IsInf(v, -1):
		return append(b, "-1e999"...), nil
	}

	return strconv.AppendFloat(b, v, 'g', -1, 64), nil
}

// appendString quotes s with the first quote it doesn't contain.
// There are no escapes in strings.
func appendString(b []byte, s string) ([]byte, error) {
	for _, q := range []byte{'"', '\'', '`'} {
		if strings.IndexByte(s, q) >= 0 {
			continue
		}

		b = append(b, q)
		b = append(b, s...)
		b = append(b, q)

		return b, nil
	}

	return nil, errors.New("string contains all the quotes: %.20q", s)
}
