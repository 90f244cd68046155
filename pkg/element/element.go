// Package element defines element descriptions: immutable values describing
// what a component wants rendered.
//
// An Element pairs a type with a property bag and an ordered list of child
// descriptions. The type is either a [Tag], naming a host primitive that the
// rendering target interprets directly, or a composite factory understood by
// the reconciler in package core.
//
// Elements are never mutated after construction. [New] copies the caller's
// props, so a map handed to it can be reused or changed afterwards without
// affecting the element:
//
//	props := element.Props{"className": "title", "key": "header"}
//	el := element.New(element.Tag("h1"), props, element.Text("Hello"))
//	// el.Key == "header", el.Props has no "key" entry, props is untouched.
package element

import (
	"fmt"
	"maps"
)

// Reserved property names extracted by [New].
const (
	KeyProp = "key"
	RefProp = "ref"
)

// TextTag is the host tag used for text elements.
const TextTag Tag = "#text"

// TextProp holds the content of a text element.
const TextProp = "text"

// Tag names a host primitive.
type Tag string

// OwnerID identifies the component instance whose render produced an element.
// The zero value means the element has no owner.
type OwnerID uint64

// Props is the property bag of an element.
type Props map[string]any

// Clone returns a shallow copy of p. A nil bag clones to an empty one.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	maps.Copy(out, p)
	return out
}

// Get returns the value stored under key, or nil.
func (p Props) Get(key string) any {
	return p[key]
}

// GetString returns the string stored under key, or "" when absent or not a string.
func (p Props) GetString(key string) string {
	s, _ := p[key].(string)
	return s
}

// GetBool returns the bool stored under key, or false.
func (p Props) GetBool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Element describes desired output at one tree position.
type Element struct {
	// Type is a Tag for host primitives or a composite factory.
	Type any
	// Props are the properties without the reserved key and ref entries.
	Props Props
	// Key gives the element a stable identity among its siblings.
	Key string
	// Ref names a backreference registered on Owner once mounted.
	Ref string
	// Owner is the instance whose render created this element.
	Owner OwnerID
	// Children are the nested descriptions, in order. Nil entries are holes
	// that keep sibling indices stable.
	Children []*Element
}

// New creates an element of the given type. The props map is copied; the
// reserved "key" and "ref" entries are moved to the Key and Ref fields.
func New(typ any, props Props, children ...*Element) *Element {
	el := &Element{
		Type:     typ,
		Props:    props.Clone(),
		Children: children,
	}
	if key, ok := el.Props[KeyProp]; ok {
		el.Key = fmt.Sprint(key)
		delete(el.Props, KeyProp)
	}
	if ref, ok := el.Props[RefProp]; ok {
		el.Ref = fmt.Sprint(ref)
		delete(el.Props, RefProp)
	}
	return el
}

// Text creates a text element with the given content.
func Text(content string) *Element {
	return &Element{
		Type:  TextTag,
		Props: Props{TextProp: content},
	}
}

// WithKey returns a copy of e with the given key.
func (e *Element) WithKey(key string) *Element {
	out := *e
	out.Key = key
	return &out
}

// WithRef returns a copy of e with the given ref name.
func (e *Element) WithRef(ref string) *Element {
	out := *e
	out.Ref = ref
	return &out
}

// WithOwner returns a copy of e owned by owner.
func (e *Element) WithOwner(owner OwnerID) *Element {
	out := *e
	out.Owner = owner
	return &out
}

// IsText reports whether e is a text element.
func (e *Element) IsText() bool {
	return e != nil && e.Type == TextTag
}

// TypeName returns a readable name for the element type.
func (e *Element) TypeName() string {
	if e == nil {
		return "<nil>"
	}
	switch t := e.Type.(type) {
	case Tag:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%T", t)
	}
}

// Only returns the single non-nil child of children, or nil when there is
// not exactly one.
func Only(children []*Element) *Element {
	var only *Element
	for _, child := range children {
		if child == nil {
			continue
		}
		if only != nil {
			return nil
		}
		only = child
	}
	return only
}
