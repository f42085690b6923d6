package front

import (
	"context"
	"math"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/CodeLikeCrazE/functi/compiler/ast"
	"github.com/CodeLikeCrazE/functi/compiler/diag"
	"github.com/CodeLikeCrazE/functi/compiler/env"
	"github.com/CodeLikeCrazE/functi/compiler/load"
	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

type (
	// Importer reads and parses an imported file.
	// It's responsible for skipping already imported paths.
	Importer interface {
		Import(ctx context.Context, path string, at diag.Location)
	}

	Parser struct {
		Env      *env.Environment
		Diag     *diag.Sink
		Resolver load.Resolver
		Importer Importer

		path string
		b    string
		i    int

		abortArgs bool
	}

	scope map[string]ast.Expr
)

// errAborted means the failure is already reported.
var errAborted = errors.New("declaration aborted")

const arrow = "=>"

func New(e *env.Environment, d *diag.Sink, path string, text []byte) *Parser {
	return &Parser{
		Env:      e,
		Diag:     d,
		Resolver: load.NewResolver("", ""),

		path: path,
		b:    string(text),
	}
}

// ParseFile parses top level chunks until the end of input.
// Problems are reported to Diag, a broken chunk is skipped.
func (p *Parser) ParseFile(ctx context.Context) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: parse file", "path", p.path, "size", len(p.b))
	defer func() {
		tr.Finish("diagnostics", p.Diag.Len())
	}()

	for {
		p.skipSpaces()

		if p.eof() {
			break
		}

		err := p.parseChunk(ctx)
		if err == nil {
			continue
		}

		var d diag.Diagnostic
		if errors.As(err, &d) {
			p.Diag.Delayed(d.Loc, d.Err)
		} else if !errors.Is(err, errAborted) {
			p.Diag.Delayed(p.loc(p.i), err)
		}

		p.abortArgs = false
		p.resync()
	}
}

func (p *Parser) parseChunk(ctx context.Context) error {
	st := p.i
	kw := p.token()

	switch kw {
	case "function":
		return p.parseFunction(ctx)
	case "import":
		return p.parseImport(ctx)
	case "":
		return p.syntax(st, "unexpected %q at top level", p.b[st])
	default:
		return p.syntax(st, "unexpected top level declaration %v", kw)
	}
}

func (p *Parser) parseFunction(ctx context.Context) (err error) {
	p.skipSpaces()

	st := p.i
	name := p.token()
	if name == "" || name == arrow {
		return p.syntax(st, "function name expected")
	}

	p.skipSpaces()
	l := p.loc(p.i)

	args, err := p.parseArgs(ctx)
	if err != nil {
		return errors.Wrap(err, "function %v", name)
	}

	p.trace(ctx, "function signature", "name", name, "args", len(args))

	fn := ast.NewPending(name, args, l)

	if p.Env.Declare(fn) {
		p.Diag.Delayed(p.loc(p.i), diag.DuplicateDeclarationError{Name: name})
	}

	sc := make(scope, len(args))
	p.bind(sc, args)

	body, err := p.parseExpr(ctx, sc)
	if err != nil {
		p.Env.Remove(fn)

		return errors.Wrap(err, "function %v", name)
	}

	fn.Complete(body)

	return nil
}

func (p *Parser) parseImport(ctx context.Context) error {
	p.skipSpaces()

	l := p.loc(p.i)

	target, err := p.parseString()
	if err != nil {
		return err
	}

	path, err := p.Resolver.Resolve(p.path, target)
	if err != nil {
		p.Diag.Delayed(l, err)
		return nil
	}

	p.trace(ctx, "import", "target", target, "path", path)

	if p.Importer == nil {
		p.Diag.Delayed(l, diag.NewSyntax("imports are not supported here: %v", target))
		return nil
	}

	p.Importer.Import(ctx, path, l)

	return nil
}

// parseArgs reads (type, name) pairs up to and including the => marker.
// It stops early if a type annotation aborted argument parsing.
func (p *Parser) parseArgs(ctx context.Context) (args []ast.Arg, err error) {
	for {
		p.skipSpaces()

		if p.eof() {
			return nil, p.syntax(p.i, "unexpected EOF, %v expected", arrow)
		}

		if strings.HasPrefix(p.b[p.i:], arrow) {
			p.i += len(arrow)
			return args, nil
		}

		a, err := p.parseArg(ctx)
		if err != nil {
			return nil, err
		}

		if p.abortArgs {
			return nil, errAborted
		}

		args = append(args, a)
	}
}

func (p *Parser) parseArg(ctx context.Context) (a ast.Arg, err error) {
	a.Type, err = p.parseType(ctx)
	if err != nil || p.abortArgs {
		return
	}

	p.skipSpaces()

	st := p.i
	a.Name = p.token()

	if a.Name == "" || strings.HasPrefix(a.Name, arrow) {
		return a, p.syntax(st, "argument name expected after %v", a.Type.Name())
	}

	return a, nil
}

func (p *Parser) parseExpr(ctx context.Context, sc scope) (x ast.Expr, err error) {
	p.skipSpaces()

	st := p.i
	l := p.loc(st)

	if p.eof() {
		return nil, p.syntax(st, "unexpected EOF, expression expected")
	}

	switch c := p.b[st]; {
	case quotes.Has(c):
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}

		return &ast.String{Base: ast.Base{Loc: l}, Value: s}, nil
	case c == '(':
		return p.parseGroup(ctx, sc)
	}

	tk := p.token()
	if tk == "" {
		return nil, p.syntax(st, "unexpected %q", p.b[st])
	}

	if v, ok := parseNumber(tk); ok {
		p.trace(ctx, "number", "val", v)

		return &ast.Number{Base: ast.Base{Loc: l}, Value: v}, nil
	}

	if tk == "anon" {
		return p.parseAnon(ctx, sc, l)
	}

	if v, ok := sc[tk]; ok {
		return &ast.Relocated{Base: ast.Base{Loc: l}, Of: v}, nil
	}

	fn, ok := p.Env.Lookup(tk)
	if !ok {
		p.Diag.Delayed(l, diag.UnresolvedIdentifierError{Name: tk})

		return &ast.Var{Base: ast.Base{Loc: l}, Name: tk}, nil
	}

	p.trace(ctx, "call", "func", tk, "args", len(fn.Args))

	call := &ast.Call{
		Base: ast.Base{Loc: l},
		Func: fn,
		Args: make([]ast.Expr, 0, len(fn.Args)),
	}

	for j := range fn.Args {
		a, err := p.parseExpr(ctx, sc)
		if err != nil {
			return nil, errors.Wrap(err, "%v arg %d", tk, j)
		}

		call.Args = append(call.Args, a)
	}

	return call, nil
}

func (p *Parser) parseGroup(ctx context.Context, sc scope) (x ast.Expr, err error) {
	p.i++ // (

	x, err = p.parseExpr(ctx, sc)
	if err != nil {
		return nil, err
	}

	p.skipSpaces()

	if p.eof() || p.b[p.i] != ')' {
		return nil, p.syntax(p.i, "expected )")
	}

	p.i++

	return x, nil
}

func (p *Parser) parseAnon(ctx context.Context, sc scope, l diag.Location) (x ast.Expr, err error) {
	args, err := p.parseArgs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "anon")
	}

	inner := make(scope, len(sc)+len(args))

	for k, v := range sc {
		inner[k] = v
	}

	p.bind(inner, args)

	body, err := p.parseExpr(ctx, inner)
	if err != nil {
		return nil, errors.Wrap(err, "anon")
	}

	return &ast.Anon{Base: ast.Base{Loc: l}, Args: args, Body: body}, nil
}

func (p *Parser) parseString() (string, error) {
	st := p.i

	if p.eof() || !quotes.Has(p.b[st]) {
		return "", p.syntax(st, "expected string")
	}

	q := p.b[st]

	end := strings.IndexByte(p.b[st+1:], q)
	if end < 0 {
		p.i = len(p.b)

		return "", p.syntax(st, "unterminated string")
	}

	p.i = st + 1 + end + 1

	return p.b[st+1 : st+1+end], nil
}

// parseType reads a type annotation.
// An unknown keyword is reported and aborts argument parsing of the caller.
func (p *Parser) parseType(ctx context.Context) (t tp.Type, err error) {
	p.skipSpaces()

	st := p.i

	if p.eof() {
		return nil, p.syntax(st, "unexpected EOF, type expected")
	}

	if p.b[st] == '[' {
		p.i++

		el, err := p.parseType(ctx)
		if err != nil || p.abortArgs {
			return el, err
		}

		p.skipSpaces()

		if p.eof() || p.b[p.i] != ']' {
			return nil, p.syntax(p.i, "expected ]")
		}

		p.i++

		return tp.Array{Elem: el}, nil
	}

	kw := p.token()

	if b, ok := tp.Keyword(kw); ok {
		return b, nil
	}

	if kw != "anon" {
		p.abortArgs = true
		p.Diag.Delayed(p.loc(st), diag.UnknownTypeError{Name: kw})

		return tp.Null, nil
	}

	var f tp.Func

	for {
		p.skipSpaces()

		if p.eof() {
			return nil, p.syntax(p.i, "unexpected EOF, %v expected", arrow)
		}

		if strings.HasPrefix(p.b[p.i:], arrow) {
			p.i += len(arrow)
			break
		}

		a, err := p.parseType(ctx)
		if err != nil || p.abortArgs {
			return a, err
		}

		f.In = append(f.In, a)
	}

	f.Out, err = p.parseType(ctx)
	if err != nil || p.abortArgs {
		return f.Out, err
	}

	return f, nil
}

func (p *Parser) bind(sc scope, args []ast.Arg) {
	l := p.loc(p.i)

	for _, a := range args {
		sc[a.Name] = &ast.Var{Base: ast.Base{Loc: l}, Name: a.Name}
	}
}

// resync skips input up to the next top level keyword.
func (p *Parser) resync() {
	for {
		p.skipSpaces()

		if p.eof() {
			return
		}

		st := p.i

		switch p.token() {
		case "function", "import":
			p.i = st
			return
		case "":
			p.i++
		}
	}
}

func (p *Parser) token() string {
	p.skipSpaces()

	st := p.i

	for p.i < len(p.b) && !spaces.Has(p.b[p.i]) && !separators.Has(p.b[p.i]) {
		p.i++
	}

	return p.b[st:p.i]
}

func (p *Parser) skipSpaces() {
	p.i = spaces.Skip(p.b, p.i)
}

func (p *Parser) eof() bool {
	return p.i >= len(p.b)
}

func (p *Parser) loc(off int) diag.Location {
	return diag.At(p.path, p.b, off)
}

func (p *Parser) syntax(off int, format string, args ...any) error {
	return diag.Diagnostic{
		Loc: p.loc(off),
		Err: diag.NewSyntax(format, args...),
	}
}

func (p *Parser) trace(ctx context.Context, msg string, kvs ...any) {
	if tr := tlog.SpanFromContext(ctx); tr.If("parse_trace") {
		tr.Printw(msg, append(kvs, "pos", p.i)...)
	}
}

// parseNumber reads the longest number prefix of the token
// the way JavaScript parseFloat does: 5abc is 5, 0x10 is 0.
func parseNumber(tk string) (float64, bool) {
	i := 0
	if i < len(tk) && (tk[i] == '-' || tk[i] == '+') {
		i++
	}

	if strings.HasPrefix(tk[i:], "Infinity") {
		if tk[0] == '-' {
			return math.Inf(-1), true
		}

		return math.Inf(1), true
	}

	st := i
	i = digits.Skip(tk, i)
	n := i - st

	if i < len(tk) && tk[i] == '.' {
		j := digits.Skip(tk, i+1)
		n += j - i - 1
		i = j
	}

	if n == 0 {
		return 0, false
	}

	end := i

	if i < len(tk) && (tk[i] == 'e' || tk[i] == 'E') {
		j := i + 1
		if j < len(tk) && (tk[j] == '-' || tk[j] == '+') {
			j++
		}

		if k := digits.Skip(tk, j); k > j {
			end = k
		}
	}

	v, err := strconv.ParseFloat(tk[:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}

	return v, true
}
