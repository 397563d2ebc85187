package memoize

import "fmt"

// Receiver parameter names. A leading parameter with one of these names marks
// the function as instance-bound (self) or class-bound (cls), which switches
// on instance-scoped identity and invalidation.
const (
	receiverSelf = "self"
	receiverCls  = "cls"
)

// Param describes one declared parameter of a memoized function: its name and
// optional default value. Go reflection exposes parameter types but not names
// or defaults, so descriptors are declared once at registration and the
// canonicalizer operates purely over them plus the call's argument values.
type Param struct {
	Name    string
	Default any
}

// P is shorthand for a Param with no default.
func P(name string) Param {
	return Param{Name: name}
}

// PD is shorthand for a Param with a default value.
func PD(name string, def any) Param {
	return Param{Name: name, Default: def}
}

// isReceiver reports whether the parameter names a receiver slot.
func (p Param) isReceiver() bool {
	return p.Name == receiverSelf || p.Name == receiverCls
}

// synthesizeParams builds positional-only descriptors for a function whose
// caller declared none. Keyword calls against synthesized names are possible
// but pointless; positional and default resolution still behave.
func synthesizeParams(arity int) []Param {
	params := make([]Param, arity)
	for i := range params {
		params[i] = Param{Name: fmt.Sprintf("arg%d", i)}
	}
	return params
}

// canonicalArgs normalizes a call's positional and keyword arguments into one
// ordered sequence of length len(params), so equivalent call forms yield
// identical key material. Resolution per declared parameter, in priority
// order: receiver representation for a leading self/cls, supplied keyword,
// next unconsumed positional, declared default, nil sentinel.
//
// Arguments beyond the declared parameters (variadic tails) are not
// represented in the canonical sequence.
func canonicalArgs(params []Param, args []any, kwargs map[string]any) []any {
	out := make([]any, 0, len(params))
	numArgs := len(args)
	consumed := 0

	for i, p := range params {
		argNum := i - consumed

		switch {
		case i == 0 && p.isReceiver():
			var receiver any
			if numArgs > 0 {
				receiver = args[0]
			}
			out = append(out, objectRepr(receiver))
		case kwargs[p.Name] != nil:
			out = append(out, kwargs[p.Name])
			consumed++
		case argNum < numArgs:
			out = append(out, args[argNum])
		case p.Default != nil:
			out = append(out, p.Default)
		default:
			out = append(out, nil)
		}
	}

	return out
}
