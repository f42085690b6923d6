package tp

import (
	"sort"
	"strings"
)

type (
	Type interface {
		Name() string
	}

	Basic int

	Object struct {
		Fields map[string]Type
	}

	Array struct {
		Elem Type
	}

	Func struct {
		In  []Type
		Out Type
	}
)

const (
	String Basic = iota
	Number
	Boolean
	Null
	Any
)

var basicNames = [...]string{
	String:  "string",
	Number:  "number",
	Boolean: "boolean",
	Null:    "null",
	Any:     "any",
}

// Keyword maps a type annotation keyword to its basic type.
func Keyword(kw string) (Basic, bool) {
	for b, n := range basicNames {
		if n == kw {
			return Basic(b), true
		}
	}

	return 0, false
}

func (x Basic) Name() string {
	if x < 0 || int(x) >= len(basicNames) {
		return "invalid"
	}

	return basicNames[x]
}

func (x Object) Name() string { return "object" }

func (x Array) Name() string {
	return "[" + name(x.Elem) + "]"
}

func (x Func) Name() string {
	var b strings.Builder

	b.WriteString("Function ")

	for i, a := range x.In {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(name(a))
	}

	b.WriteString(" => ")
	b.WriteString(name(x.Out))

	return b.String()
}

func (x Basic) String() string  { return x.Name() }
func (x Object) String() string { return x.Name() }
func (x Array) String() string  { return x.Name() }
func (x Func) String() string   { return x.Name() }

func name(t Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.Name()
}

// Equal reports structural equality of two type trees.
func Equal(a, b Type) bool {
	switch a := a.(type) {
	case Basic:
		b, ok := b.(Basic)
		return ok && a == b
	case Array:
		b, ok := b.(Array)
		return ok && Equal(a.Elem, b.Elem)
	case Func:
		b, ok := b.(Func)
		if !ok || len(a.In) != len(b.In) || !Equal(a.Out, b.Out) {
			return false
		}

		for i := range a.In {
			if !Equal(a.In[i], b.In[i]) {
				return false
			}
		}

		return true
	case Object:
		b, ok := b.(Object)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}

		for _, k := range fieldNames(a) {
			bf, ok := b.Fields[k]
			if !ok || !Equal(a.Fields[k], bf) {
				return false
			}
		}

		return true
	case nil:
		return b == nil
	default:
		return false
	}
}

// CanCast reports whether a value of type src is accepted where dest is declared.
// Only arrays are looked into. Function and object types must match exactly,
// so a function taking number does not cast to one taking any.
func CanCast(src, dest Type) bool {
	if Equal(src, dest) {
		return true
	}

	if dest == Any {
		return true
	}

	sa, ok1 := src.(Array)
	da, ok2 := dest.(Array)

	if ok1 && ok2 {
		return CanCast(sa.Elem, da.Elem)
	}

	return false
}

func fieldNames(x Object) []string {
	l := make([]string, 0, len(x.Fields))

	for k := range x.Fields {
		l = append(l, k)
	}

	sort.Strings(l)

	return l
}
