package ast

import "strings"

// TypeKind discriminates the handful of type shapes the checker (§4.E)
// assigns to every expression node.
type TypeKind int

const (
	TVoid TypeKind = iota
	TInt
	TFloat
	TBool
	TByte
	TString
	TClass
	TEnum
	TTrait
	TArray
	TMap
	TSet
	TChan
	TTask
	TError
	TClosure // func type: Params/Return populated
	TTypeParam
	TGeneric // an unresolved generic instantiation, e.g. Box<T>
	TUnknown
)

// Type is the checker's concrete type representation. Most TypeKinds only
// populate a subset of the fields below; see each constructor.
type Type struct {
	Kind TypeKind
	Name string // class/enum/trait/generic/type-param name

	// Declaration this type resolves to, once known (class/enum/trait/error).
	Decl OptionalID

	Elem   *Type   // array/set/channel element type
	Key    *Type   // map key type
	Value  *Type   // map value type
	Params []*Type // closure parameter types
	Return *Type   // closure return type

	// Args are the concrete type arguments of a generic instantiation
	// (TGeneric before monomorphisation; consumed to build the mangled
	// Base$$arg1$arg2 name in §4.F).
	Args []*Type
}

func Basic(k TypeKind) *Type { return &Type{Kind: k} }

func Named(kind TypeKind, name string, decl OptionalID) *Type {
	return &Type{Kind: kind, Name: name, Decl: decl}
}

func ArrayOf(elem *Type) *Type { return &Type{Kind: TArray, Elem: elem} }
func SetOf(elem *Type) *Type   { return &Type{Kind: TSet, Elem: elem} }
func MapOf(key, val *Type) *Type {
	return &Type{Kind: TMap, Key: key, Value: val}
}
func ChanOf(elem *Type) *Type { return &Type{Kind: TChan, Elem: elem} }
func TaskOf(elem *Type) *Type { return &Type{Kind: TTask, Elem: elem} }

func ClosureType(params []*Type, ret *Type) *Type {
	return &Type{Kind: TClosure, Params: params, Return: ret}
}

func Generic(name string, args []*Type) *Type {
	return &Type{Kind: TGeneric, Name: name, Args: args}
}

func TypeParam(name string) *Type { return &Type{Kind: TTypeParam, Name: name} }

// IsNumeric reports whether arithmetic operators apply directly.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == TInt || t.Kind == TFloat)
}

// Equal performs structural type equality, used throughout checking and by
// invariant 6 (no TypeParam survives monomorphisation).
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TClass, TEnum, TTrait, TTypeParam:
		return t.Name == o.Name
	case TArray, TSet, TChan, TTask:
		return t.Elem.Equal(o.Elem)
	case TMap:
		return t.Key.Equal(o.Key) && t.Value.Equal(o.Value)
	case TClosure:
		if len(t.Params) != len(o.Params) || !t.Return.Equal(o.Return) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return true
	case TGeneric:
		if t.Name != o.Name || len(t.Args) != len(o.Args) {
			return false
		}
		for i := range t.Args {
			if !t.Args[i].Equal(o.Args[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// HasTypeParam reports whether a TypeParam occurs anywhere in this type —
// used to enforce invariant 6 after monomorphisation (no TypeParam may
// survive).
func (t *Type) HasTypeParam() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case TTypeParam:
		return true
	case TArray, TSet, TChan, TTask:
		return t.Elem.HasTypeParam()
	case TMap:
		return t.Key.HasTypeParam() || t.Value.HasTypeParam()
	case TClosure:
		if t.Return.HasTypeParam() {
			return true
		}
		for _, p := range t.Params {
			if p.HasTypeParam() {
				return true
			}
		}
		return false
	case TGeneric:
		for _, a := range t.Args {
			if a.HasTypeParam() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Mangle produces the Base$$arg1$arg2 deterministic name §4.F requires for
// a generic instantiation. Panics if called on a non-generic type.
func (t *Type) Mangle() string {
	if t.Kind != TGeneric {
		panic("ast: Mangle called on non-generic type")
	}
	args := make([]string, 0, len(t.Args))
	for _, a := range t.Args {
		args = append(args, a.mangleArg())
	}
	return t.Name + "$$" + strings.Join(args, "$")
}

func (t *Type) mangleArg() string {
	switch t.Kind {
	case TGeneric:
		return t.Mangle()
	case TArray:
		return "Array$" + t.Elem.mangleArg()
	case TSet:
		return "Set$" + t.Elem.mangleArg()
	case TMap:
		return "Map$" + t.Key.mangleArg() + "$" + t.Value.mangleArg()
	case TChan:
		return "Chan$" + t.Elem.mangleArg()
	case TTask:
		return "Task$" + t.Elem.mangleArg()
	case TClass, TEnum, TTrait, TTypeParam:
		return t.Name
	default:
		// Basic primitives (TInt, TFloat, TBool, TByte, TString, TVoid) carry
		// no Name — their capitalised String() form is the mangle segment.
		s := t.String()
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

func (t *Type) String() string {
	switch t.Kind {
	case TVoid:
		return "void"
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TBool:
		return "bool"
	case TByte:
		return "byte"
	case TString:
		return "string"
	case TClass, TEnum, TTrait, TTypeParam:
		return t.Name
	case TArray:
		return "[" + t.Elem.String() + "]"
	case TSet:
		return "{" + t.Elem.String() + "}"
	case TMap:
		return "{" + t.Key.String() + ": " + t.Value.String() + "}"
	case TChan:
		return "chan<" + t.Elem.String() + ">"
	case TTask:
		return "task<" + t.Elem.String() + ">"
	case TError:
		return "error"
	case TClosure:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return "(" + strings.Join(parts, ", ") + ") -> " + t.Return.String()
	case TGeneric:
		return t.Mangle()
	default:
		return "?"
	}
}
