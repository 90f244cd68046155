package core

import (
	"maps"
	"reflect"
	"slices"
)

// Context is an immutable set of named values inherited from ancestors that
// implement ChildContextProvider.
//
// A component sees only the keys its Class declares in ContextTypes. A
// declared key that no ancestor provides is present with a nil value.
//
// Contexts are deduplicated by value: when a recomputed context holds the
// same values as the previous one, the previous pointer is kept. A new
// pointer therefore always means changed values, but equal values may still
// arrive in a new pointer, so compare with Equal when it matters.
type Context struct {
	values map[string]any
}

var emptyContext = &Context{}

// NewContext returns a context holding a copy of values.
func NewContext(values map[string]any) *Context {
	if len(values) == 0 {
		return emptyContext
	}
	return &Context{values: maps.Clone(values)}
}

// Value returns the value stored under key, or nil.
func (c *Context) Value(key string) any {
	if c == nil {
		return nil
	}
	return c.values[key]
}

// Lookup returns the value stored under key and whether the key is present.
// Declared but unprovided keys are present with a nil value.
func (c *Context) Lookup(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of keys.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.values)
}

// Keys returns the keys in sorted order.
func (c *Context) Keys() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.values))
}

// Map returns a copy of the values.
func (c *Context) Map() map[string]any {
	out := make(map[string]any, c.Len())
	if c != nil {
		maps.Copy(out, c.values)
	}
	return out
}

// Equal reports whether c and other hold deeply equal values.
func (c *Context) Equal(other *Context) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return c.Len() == other.Len()
	}
	if c.Len() != other.Len() {
		return false
	}
	for key, v := range c.values {
		ov, ok := other.values[key]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// mergeContext overlays contribution on parent. Contributed keys win.
func mergeContext(parent *Context, contribution map[string]any) *Context {
	if len(contribution) == 0 {
		return parent
	}
	values := make(map[string]any, parent.Len()+len(contribution))
	if parent != nil {
		maps.Copy(values, parent.values)
	}
	maps.Copy(values, contribution)
	return &Context{values: values}
}

// maskContext restricts merged to the declared keys.
func maskContext(merged *Context, declared []string) *Context {
	if len(declared) == 0 {
		return emptyContext
	}
	values := make(map[string]any, len(declared))
	for _, key := range declared {
		values[key] = merged.Value(key)
	}
	return &Context{values: values}
}

// reuseIfEqual returns prev when it holds the same values as next.
func reuseIfEqual(prev, next *Context) *Context {
	if prev != nil && prev.Equal(next) {
		return prev
	}
	return next
}

// computeChildContext returns the merged context handed to inst's children.
// Instances without a ChildContext hook pass their own unmasked context
// through unchanged.
func (r *Reconciler) computeChildContext(inst *Instance) (*Context, error) {
	provider, ok := inst.component.(ChildContextProvider)
	if !ok {
		inst.childCtx = inst.unmasked
		return inst.unmasked, nil
	}

	saved := r.childContextOf
	r.childContextOf = inst
	defer func() { r.childContextOf = saved }()

	var contribution map[string]any
	if err := r.invoke(inst, "ChildContext", func() {
		contribution = provider.ChildContext()
	}); err != nil {
		return nil, err
	}

	merged := reuseIfEqual(inst.childCtx, mergeContext(inst.unmasked, contribution))
	inst.childCtx = merged
	return merged, nil
}
