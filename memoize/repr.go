package memoize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Representer lets a receiver (or argument) type supply a stable identity
// representation for key derivation. Types that do not implement it fall back
// to pointer identity for pointer values and a structural form otherwise.
// Overriding this is how callers scope instance invalidation to something
// durable, e.g. a user ID instead of a memory address.
type Representer interface {
	CacheRepr() string
}

// objectRepr renders a value deterministically for inclusion in key material.
// Pointer values render by identity, so two distinct instances of the same
// type never collide; everything else renders structurally so equal values
// produce equal key material across runs.
func objectRepr(v any) string {
	if v == nil {
		return "nil"
	}

	if r, ok := v.(Representer); ok {
		return r.CacheRepr()
	}

	if t, ok := v.(reflect.Type); ok {
		return "<type " + t.String() + ">"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return fmt.Sprintf("<%s %#x>", rt.String(), rv.Pointer())
	case reflect.Func:
		if rv.IsNil() {
			return "nil"
		}
		return fmt.Sprintf("func:%#x", rv.Pointer())
	case reflect.Chan:
		return fmt.Sprintf("chan:%#x", rv.Pointer())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return reprSequence("slice", rv)
	case reflect.Array:
		return reprSequence("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return reprMap(rv)
	case reflect.Struct:
		return reprStruct(rv, rt)
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return jsonFallback(v)
}

// reprArgs renders a canonical argument sequence as one tuple-like string.
func reprArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = objectRepr(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// reprKwargs renders keyword arguments with sorted names. After
// canonicalization this is always empty; the raw-key path may carry values.
func reprKwargs(kwargs map[string]any) string {
	if len(kwargs) == 0 {
		return "{}"
	}

	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + objectRepr(kwargs[name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func reprSequence(label string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = objectRepr(rv.Index(i).Interface())
	}
	return fmt.Sprintf("%s[%d]:{%s}", label, length, strings.Join(parts, ","))
}

// reprMap renders map entries in sorted key order for determinism.
func reprMap(rv reflect.Value) string {
	keys := rv.MapKeys()

	type pair struct{ k, v string }
	pairs := make([]pair, len(keys))
	for i, k := range keys {
		pairs[i] = pair{objectRepr(k.Interface()), objectRepr(rv.MapIndex(k).Interface())}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(parts, ","))
}

func reprStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		if !fv.CanInterface() {
			continue
		}
		parts = append(parts, field.Name+":"+objectRepr(fv.Interface()))
	}
	return rt.String() + ":{" + strings.Join(parts, ",") + "}"
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback keeps key generation working for types the switch above does
// not cover. Stability matters more than fidelity here.
func jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}
