package memoize

import (
	"reflect"
	"runtime"
	"strings"
)

// scrubNamespace strips every rune a backend key cannot safely carry, keeping
// only alphanumerics, '_' and '.'. Applied to every namespace component so
// derived keys survive memcached's key restrictions unchanged.
func scrubNamespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '_' || r == '.':
			b.WriteRune(r)
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// joinNamespace joins namespace components with '.' and scrubs the result.
func joinNamespace(parts ...string) string {
	return scrubNamespace(strings.Join(parts, "."))
}

// functionName derives the module-qualified name of a callable from its code
// pointer: the Go analog of module + qualified name. Method values carry a
// "-fm" suffix which is stripped so bound and unbound forms of the same
// method share one function namespace.
func functionName(fn any) string {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return ""
	}
	rf := runtime.FuncForPC(rv.Pointer())
	if rf == nil {
		return ""
	}
	return strings.TrimSuffix(rf.Name(), "-fm")
}

// namespaces resolves the function namespace and, when the call is
// instance-bound, the instance namespace. args is the effective call argument
// sequence (receiver first for bound or receiver-style calls).
//
// A receiver exists when the Func was explicitly bound, or when the first
// declared parameter is self/cls and a first argument is present. The cls
// case binds to the class marker itself, so every call through it shares one
// instance namespace regardless of arguments.
func (f *Func) namespaces(args []any) (fname, instanceFname string) {
	fname = f.fname

	var receiver any
	switch {
	case f.receiver != nil:
		receiver = f.receiver
	case len(f.params) > 0 && f.params[0].isReceiver() && len(args) > 0:
		receiver = args[0]
	}

	if receiver == nil {
		return fname, ""
	}
	return fname, joinNamespace(fname, objectRepr(receiver))
}
