// Package sinfo implements the SerializationInfo tree (spec §3.1): an
// in-memory intermediate representation that any user type can be written
// into and read out of without the codec ever knowing the concrete Go type.
// Formatters/parsers for both wire codecs, and the reflection-driven
// Composer/Decomposer adapters in internal/protocol/compose, operate on this
// tree (or stream events shaped like a walk of it) rather than on user types
// directly.
package sinfo

// Category is the tagged-union discriminant of an Info node (spec §3.1).
type Category int

const (
	// CategoryVoid marks an uninitialized node — null until a category is
	// set by the first SetValue/AddMember/AddElement call.
	CategoryVoid Category = iota
	CategoryValue
	CategoryObject
	CategoryArray
	// CategoryReference is a pointer placeholder. The core contract treats
	// it as CategoryVoid (spec §3.1): "rarely used; treat as Void for the
	// core contract".
	CategoryReference
)

func (c Category) String() string {
	switch c {
	case CategoryVoid:
		return "void"
	case CategoryValue:
		return "value"
	case CategoryObject:
		return "object"
	case CategoryArray:
		return "array"
	case CategoryReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Info is one node of the SerializationInfo tree.
//
// Members preserve insertion order exactly (Object category) or positional
// order (Array category, where child names are ignored) — invariant 1 of
// spec §3.1. A Value node's Members is always empty; adding a member
// promotes Void/Value to Object, and never demotes an Array.
//
// Info is single-owner: a node is owned by its parent's Members slice, and
// root nodes are owned by the caller. Parent is a non-owning back
// reference, valid only for the duration of one codec pass (spec §3.1
// Lifecycle).
type Info struct {
	category Category
	name     string
	typeName string
	value    Scalar
	members  []*Info
	parent   *Info
}

// New returns a fresh, Void-category root node.
func New() *Info {
	return &Info{category: CategoryVoid}
}

func (n *Info) Category() Category   { return n.category }
func (n *Info) Name() string         { return n.name }
func (n *Info) TypeName() string     { return n.typeName }
func (n *Info) Value() Scalar        { return n.value }
func (n *Info) Parent() *Info        { return n.parent }
func (n *Info) SetName(name string)  { n.name = name }
func (n *Info) SetTypeName(t string) { n.typeName = t }

// SetCategory forces the category directly. Used by codecs that already
// know the shape of the incoming value (e.g. the binary parser reading an
// aggregate type code) instead of inferring it from SetValue/AddMember.
func (n *Info) SetCategory(c Category) { n.category = c }

// SetValue stores a scalar, promoting a Void node to Value category. Does
// not touch Members — per invariant 1, a Value node's Members is always
// empty, so SetValue on a node that already has members is a caller error
// and leaves category as Object (members win).
func (n *Info) SetValue(v Scalar) {
	n.value = v
	if n.category == CategoryVoid {
		n.category = CategoryValue
	}
}

// SetNull sets the none variant and promotes Void to Value, mirroring
// addNull in the Decomposer event set (spec §3.2).
func (n *Info) SetNull() { n.SetValue(Null()) }

// Members returns the ordered child slice. Callers must not mutate it
// directly; use AddMember/AddElement.
func (n *Info) Members() []*Info { return n.members }

// AddMember appends a new named child and promotes Void/Value to Object
// (invariant 1: "adding a member promotes category from Value/Void to
// Object, never demotes Array"). The returned pointer is valid only for the
// current codec pass (spec §3.1 Lifecycle / invariant 4).
func (n *Info) AddMember(name string) *Info {
	child := &Info{name: name, parent: n, category: CategoryVoid}
	n.members = append(n.members, child)
	if n.category != CategoryArray {
		n.category = CategoryObject
	}
	return child
}

// AddElement appends a new positional child and promotes Void to Array.
// Calling AddElement on a node already promoted to Object is a caller
// error (mixed aggregate); the category is left as Object so the mistake
// is visible to a later codec pass rather than silently discarded.
func (n *Info) AddElement() *Info {
	child := &Info{parent: n, category: CategoryVoid}
	n.members = append(n.members, child)
	if n.category == CategoryVoid || n.category == CategoryValue {
		n.category = CategoryArray
	}
	return child
}

// FindMember returns the first child with the given name, or (nil, false)
// if none exists (invariant 2).
func (n *Info) FindMember(name string) (*Info, bool) {
	for _, m := range n.members {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// GetMember is FindMember but raises MemberNotFoundError instead of a bool
// (invariant 2: "getMember(name) raises MemberNotFound when missing").
func (n *Info) GetMember(name string) (*Info, error) {
	m, ok := n.FindMember(name)
	if !ok {
		return nil, &MemberNotFoundError{Name: name}
	}
	return m, nil
}

// Clone deep-copies the subtree rooted at n. The clone's root has no
// parent; descendants point at their cloned parent.
func (n *Info) Clone() *Info {
	c := &Info{
		category: n.category,
		name:     n.name,
		typeName: n.typeName,
		value:    n.value,
	}
	for _, m := range n.members {
		child := m.Clone()
		child.parent = c
		c.members = append(c.members, child)
	}
	return c
}

// Equal reports whether two subtrees are equal member-for-member, in order,
// with identical categories and type names (spec §8 universal invariant:
// "parse_F(format_F(T)) yields a tree equal to T member-for-member in
// order"). Integer scalars compare by numeric value, so a signed and an
// unsigned scalar holding the same number are equal (the binary codec
// writes non-negative integers with unsigned codes).
func (n *Info) Equal(o *Info) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.category != o.category || n.name != o.name || n.typeName != o.typeName {
		return false
	}
	if n.category == CategoryValue {
		a, b := n.value, o.value
		if a.kind == KindUint && b.kind == KindInt {
			a, b = b, a
		}
		if a.kind == KindInt && b.kind == KindUint {
			return a.i >= 0 && uint64(a.i) == b.u
		}
		if n.value.kind != o.value.kind {
			return false
		}
		switch n.value.kind {
		case KindNone:
			return true
		case KindString:
			return n.value.s == o.value.s
		case KindBytes:
			return string(n.value.b) == string(o.value.b)
		case KindChar:
			return n.value.ch == o.value.ch
		case KindBool:
			return n.value.bl == o.value.bl
		case KindInt:
			return n.value.i == o.value.i
		case KindUint:
			return n.value.u == o.value.u
		case KindFloat:
			return floatEqualOrBothNaN(n.value.f, o.value.f)
		}
	}
	if len(n.members) != len(o.members) {
		return false
	}
	for i := range n.members {
		if !n.members[i].Equal(o.members[i]) {
			return false
		}
	}
	return true
}

func floatEqualOrBothNaN(a, b float64) bool {
	if a != a && b != b { // both NaN
		return true
	}
	return a == b
}
