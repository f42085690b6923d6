package diag

import (
	"fmt"

	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

type (
	SyntaxError struct {
		Msg string
	}

	UnknownTypeError struct {
		Name string
	}

	DuplicateDeclarationError struct {
		Name string
	}

	UnresolvedIdentifierError struct {
		Name string
	}

	UnboundVariableError struct {
		Name string
	}

	TypeMismatchError struct {
		From tp.Type
		To   tp.Type
	}

	ArityMismatchError struct {
		Want int
		Got  int
	}

	NotCallableError struct {
		Got tp.Type
	}

	ReadFailureError struct {
		Path string
		Err  error
	}
)

func NewSyntax(format string, args ...any) SyntaxError {
	return SyntaxError{Msg: fmt.Sprintf(format, args...)}
}

func (e SyntaxError) Error() string { return e.Msg }

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("unexpected type %v", e.Name)
}

func (e DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("function %v already exists", e.Name)
}

func (e UnresolvedIdentifierError) Error() string {
	return fmt.Sprintf("%v is not a function nor is it defined in the current scope", e.Name)
}

func (e UnboundVariableError) Error() string {
	return fmt.Sprintf("%v does not exist in the current scope", e.Name)
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot cast from %v to %v", e.From.Name(), e.To.Name())
}

func (e ArityMismatchError) Error() string {
	return fmt.Sprintf("args length mismatch: want %d, got %d", e.Want, e.Got)
}

func (e NotCallableError) Error() string {
	return fmt.Sprintf("call expects a function, got %v", e.Got.Name())
}

func (e ReadFailureError) Error() string {
	return fmt.Sprintf("cannot read file %v: %v", e.Path, e.Err)
}

func (e ReadFailureError) Unwrap() error { return e.Err }
