package ast

import (
	"fmt"

	"tlog.app/go/loc"

	"github.com/CodeLikeCrazE/functi/compiler/diag"
	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

type (
	Kind int

	NativeOp int

	Arg struct {
		Name string
		Type tp.Type
	}

	// Function is owned by the environment and shared by pointer
	// from every call site.
	Function struct {
		Kind Kind
		Name string
		Args []Arg

		Native NativeOp // Native only
		Body   Expr     // Custom only

		Loc diag.Location
	}

	Expr interface {
		Location() diag.Location
	}

	Base struct {
		Loc diag.Location
	}

	Call struct {
		Base

		Func *Function
		Args []Expr
	}

	Number struct {
		Base

		Value float64
	}

	String struct {
		Base

		Value string
	}

	Var struct {
		Base

		Name string
	}

	// Relocated stands for a token resolved to a variable bound in an
	// enclosing scope. Stages see through it with Unwrap.
	Relocated struct {
		Base

		Of Expr
	}

	Anon struct {
		Base

		Args []Arg
		Body Expr
	}

	PendingFunctionError struct {
		Name string
		From loc.PC
	}
)

const (
	Pending Kind = iota
	Native
	Custom
)

const (
	OpAdd NativeOp = iota
	OpSub
	OpMul
	OpDiv
	OpCat

	// OpCall invokes its first argument with the rest.
	// It has no syntax and no code generator support.
	OpCall
)

func NewPending(name string, args []Arg, l diag.Location) *Function {
	return &Function{
		Kind: Pending,
		Name: name,
		Args: args,
		Loc:  l,
	}
}

func NewNative(op NativeOp, name string, args ...Arg) *Function {
	return &Function{
		Kind:   Native,
		Name:   name,
		Args:   args,
		Native: op,
	}
}

// Complete turns a pending declaration into a custom function in place,
// so calls resolved while the body was parsed see the body too.
func (f *Function) Complete(body Expr) {
	if f.Kind != Pending {
		panic(fmt.Sprintf("complete %v function %v", f.Kind, f.Name))
	}

	f.Kind = Custom
	f.Body = body
}

// MustResolve panics if f is still a pending declaration.
// Pending functions never leave the parser.
func (f *Function) MustResolve() *Function {
	if f.Kind == Pending {
		panic(PendingFunctionError{Name: f.Name, From: loc.Caller(1)})
	}

	return f
}

// Unwrap strips Relocated wrappers.
func Unwrap(x Expr) Expr {
	for {
		r, ok := x.(*Relocated)
		if !ok {
			return x
		}

		x = r.Of
	}
}

func (x Base) Location() diag.Location { return x.Loc }

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Native:
		return "native"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (op NativeOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpCat:
		return "cat"
	case OpCall:
		return "call"
	default:
		return fmt.Sprintf("NativeOp(%d)", int(op))
	}
}

func (e PendingFunctionError) Error() string {
	return fmt.Sprintf("function %v is still pending (at %v)", e.Name, e.From)
}
