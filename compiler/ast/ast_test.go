package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CodeLikeCrazE/functi/compiler/tp"
)

func TestCompleteInPlace(t *testing.T) {
	f := NewPending("f", []Arg{{Name: "n", Type: tp.Number}}, Base{}.Loc)

	call := &Call{Func: f, Args: []Expr{&Var{Name: "n"}}}
	f.Complete(call)

	assert.Equal(t, Custom, call.Func.Kind)
	assert.Same(t, call, call.Func.Body)

	assert.Panics(t, func() { f.Complete(call) })
}

func TestMustResolve(t *testing.T) {
	f := NewPending("f", nil, Base{}.Loc)

	func() {
		defer func() {
			p, ok := recover().(PendingFunctionError)
			assert.True(t, ok)
			assert.Equal(t, "f", p.Name)
			assert.Contains(t, p.Error(), "function f is still pending")
		}()

		f.MustResolve()
	}()

	n := NewNative(OpAdd, "core/add")
	assert.Same(t, n, n.MustResolve())
}

func TestUnwrap(t *testing.T) {
	v := &Var{Name: "x"}
	r := &Relocated{Of: &Relocated{Of: v}}

	assert.Same(t, v, Unwrap(r))
	assert.Same(t, v, Unwrap(v))
}
