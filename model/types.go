package model

import (
	"fmt"
	"strconv"
)

// TypeKind discriminates the fixed set of value types.
type TypeKind int

const (
	BoolTypeKind TypeKind = iota
	IntTypeKind
	RealTypeKind
	UserTypeKind
)

// Type is a node in the problem's type hierarchy. Types are interned by the
// owning TypeRegistry, so two equal types are the same pointer.
type Type struct {
	kind   TypeKind
	name   string
	parent *Type // user types only; nil for the root "object"

	// optional numeric bounds, nil means unbounded on that side
	lowerInt, upperInt   *int64
	lowerReal, upperReal *float64
}

// Kind returns the type's kind.
func (t *Type) Kind() TypeKind { return t.kind }

// Name returns the declared name. Built-in types are named "bool",
// "integer" and "real".
func (t *Type) Name() string { return t.name }

// Parent returns the supertype of a user type, nil for the root.
func (t *Type) Parent() *Type { return t.parent }

// IsBool reports whether the type is boolean.
func (t *Type) IsBool() bool { return t.kind == BoolTypeKind }

// IsInt reports whether the type is an integer type.
func (t *Type) IsInt() bool { return t.kind == IntTypeKind }

// IsReal reports whether the type is a real type.
func (t *Type) IsReal() bool { return t.kind == RealTypeKind }

// IsNumeric reports whether the type is integer or real.
func (t *Type) IsNumeric() bool { return t.kind == IntTypeKind || t.kind == RealTypeKind }

// IsUser reports whether the type is a user-declared object type.
func (t *Type) IsUser() bool { return t.kind == UserTypeKind }

// IntBounds returns the declared bounds of a bounded integer type. A nil
// bound is unbounded on that side.
func (t *Type) IntBounds() (lower, upper *int64) { return t.lowerInt, t.upperInt }

// String renders the type for diagnostics.
func (t *Type) String() string {
	switch t.kind {
	case IntTypeKind:
		if t.lowerInt != nil || t.upperInt != nil {
			return fmt.Sprintf("integer[%s, %s]", boundString(t.lowerInt), boundString(t.upperInt))
		}
		return "integer"
	case RealTypeKind:
		return "real"
	case BoolTypeKind:
		return "bool"
	default:
		return t.name
	}
}

func boundString(b *int64) string {
	if b == nil {
		return "-"
	}
	return strconv.FormatInt(*b, 10)
}

// IsSubtypeOf reports whether every value of t is also a value of other.
// The relation is reflexive and transitive; user types follow the parent
// chain up to the root, and integers are usable where reals are expected.
func (t *Type) IsSubtypeOf(other *Type) bool {
	if t == other {
		return true
	}
	switch {
	case t.kind == UserTypeKind && other.kind == UserTypeKind:
		for p := t; p != nil; p = p.parent {
			if p == other {
				return true
			}
		}
		return false
	case t.kind == IntTypeKind && other.kind == IntTypeKind:
		return boundsWithin(t.lowerInt, t.upperInt, other.lowerInt, other.upperInt)
	case t.kind == IntTypeKind && other.kind == RealTypeKind:
		return other.lowerReal == nil && other.upperReal == nil
	case t.kind == RealTypeKind && other.kind == RealTypeKind:
		return t.lowerReal == nil && t.upperReal == nil &&
			other.lowerReal == nil && other.upperReal == nil ||
			t == other
	default:
		return false
	}
}

func boundsWithin(lo, hi, outerLo, outerHi *int64) bool {
	if outerLo != nil && (lo == nil || *lo < *outerLo) {
		return false
	}
	if outerHi != nil && (hi == nil || *hi > *outerHi) {
		return false
	}
	return true
}

// TypeRegistry owns the type hierarchy of one environment. It is an
// explicit object rather than a process-wide table; every environment gets
// its own.
type TypeRegistry struct {
	boolType *Type
	intType  *Type
	realType *Type
	object   *Type
	user     map[string]*Type
	bounded  map[string]*Type
}

func newTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		boolType: &Type{kind: BoolTypeKind, name: "bool"},
		intType:  &Type{kind: IntTypeKind, name: "integer"},
		realType: &Type{kind: RealTypeKind, name: "real"},
		user:     make(map[string]*Type),
		bounded:  make(map[string]*Type),
	}
	r.object = &Type{kind: UserTypeKind, name: "object"}
	r.user["object"] = r.object
	return r
}

// Bool returns the boolean type.
func (r *TypeRegistry) Bool() *Type { return r.boolType }

// Int returns the unbounded integer type.
func (r *TypeRegistry) Int() *Type { return r.intType }

// Real returns the unbounded real type.
func (r *TypeRegistry) Real() *Type { return r.realType }

// Object returns the root user type "object".
func (r *TypeRegistry) Object() *Type { return r.object }

// BoundedInt returns the integer type restricted to [lower, upper].
func (r *TypeRegistry) BoundedInt(lower, upper int64) *Type {
	key := fmt.Sprintf("%d:%d", lower, upper)
	if t, ok := r.bounded[key]; ok {
		return t
	}
	lo, hi := lower, upper
	t := &Type{kind: IntTypeKind, name: "integer", lowerInt: &lo, upperInt: &hi}
	r.bounded[key] = t
	return t
}

// UserType declares (or retrieves) a user type. A nil parent means the type
// descends directly from "object". Re-declaring a name with a different
// parent is a DuplicateNameError.
func (r *TypeRegistry) UserType(name string, parent *Type) (*Type, error) {
	if parent == nil {
		parent = r.object
	}
	if existing, ok := r.user[name]; ok {
		if existing.parent == parent || existing == r.object {
			return existing, nil
		}
		return nil, &DuplicateNameError{Kind: "type", Name: name}
	}
	if !parent.IsUser() {
		return nil, &TypeError{Op: "UserType", Message: fmt.Sprintf("parent of %s must be a user type, got %s", name, parent)}
	}
	t := &Type{kind: UserTypeKind, name: name, parent: parent}
	r.user[name] = t
	return t, nil
}

// Lookup retrieves a declared user type by name.
func (r *TypeRegistry) Lookup(name string) (*Type, error) {
	if t, ok := r.user[name]; ok {
		return t, nil
	}
	return nil, &UndefinedUserTypeError{Name: name}
}

// HasUserType reports whether a user type with the given name exists.
func (r *TypeRegistry) HasUserType(name string) bool {
	_, ok := r.user[name]
	return ok
}
