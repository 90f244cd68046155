package core

import (
	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/errors"
	"github.com/go-drift/composite/pkg/host"
)

// componentBase is satisfied by any struct that embeds Base.
type componentBase interface {
	componentBase() *Base
}

func (b *Base) componentBase() *Base { return b }

// Base provides the instance-facing API for composite components.
// Embed it in your component struct:
//
//	type counter struct {
//	    core.Base
//	}
//
//	func (c *counter) InitialState() core.State {
//	    return map[string]any{"count": 0}
//	}
//
//	func (c *counter) Render(ctx *core.RenderContext) *element.Element {
//	    return element.New(element.Tag("span"), nil, element.Text(fmt.Sprint(c.Get("count"))))
//	}
//
// Base is bound to its instance by the reconciler right after construction.
// Until then, and after unmounting, update requests are reported no-ops.
type Base struct {
	inst       *Instance
	initProps  element.Props
	initCalled bool
	disposers  []func()
	disposed   bool
}

// Init records the props the constructor was given. Calling it is optional;
// when called with props that differ from the constructor's argument, the
// mismatch is reported.
func (b *Base) Init(props element.Props) {
	b.initProps = props
	b.initCalled = true
}

// Props returns the current props, including defaults.
func (b *Base) Props() element.Props {
	if b.inst == nil {
		return b.initProps
	}
	return b.inst.props
}

// State returns the current state.
func (b *Base) State() State {
	if b.inst == nil {
		return nil
	}
	return b.inst.state
}

// Get returns a field of a map-shaped state, or nil.
func (b *Base) Get(key string) any {
	switch s := b.State().(type) {
	case map[string]any:
		return s[key]
	case element.Props:
		return s[key]
	default:
		return nil
	}
}

// Context returns the masked context: exactly the keys the class declared.
func (b *Base) Context() *Context {
	if b.inst == nil || b.inst.context == nil {
		return emptyContext
	}
	return b.inst.context
}

// Children returns the children of the component's current element.
func (b *Base) Children() []*element.Element {
	if b.inst == nil || b.inst.element == nil {
		return nil
	}
	return b.inst.element.Children
}

// SetState merges partial into the state and schedules an update pass.
//
// partial may be a map[string]any, a struct (exported fields become keys),
// an Updater, or nil. Map-shaped partials are shallow-merged onto a copy of
// the current state; a non-map state loses its concrete type unless it
// implements Merger. Any other value replaces the state.
//
// Outside a batch the pass runs before SetState returns, and the returned
// error is the error of that pass. Inside a batch the request is queued.
// callback runs once the pass has been applied.
func (b *Base) SetState(partial any, callback func()) error {
	if b.inst == nil {
		errors.ReportWarning(errors.NoopUpdateWarning("SetState", "Component"))
		return nil
	}
	return b.inst.rec.enqueue(b.inst, "SetState", &Update{Kind: UpdateMerge, Value: partial}, false, callback)
}

// ForceUpdate schedules an update pass that bypasses ShouldUpdate.
func (b *Base) ForceUpdate(callback func()) error {
	if b.inst == nil {
		errors.ReportWarning(errors.NoopUpdateWarning("ForceUpdate", "Component"))
		return nil
	}
	return b.inst.rec.enqueue(b.inst, "ForceUpdate", nil, true, callback)
}

// ReplaceState installs state wholesale, discarding requests queued before it.
//
// Deprecated: ReplaceState is kept for legacy callers. Use SetState.
func (b *Base) ReplaceState(state State, callback func()) error {
	if b.inst == nil {
		errors.ReportWarning(errors.NoopUpdateWarning("ReplaceState", "Component"))
		return nil
	}
	return b.inst.rec.enqueue(b.inst, "ReplaceState", &Update{Kind: UpdateReplace, Value: state}, false, callback)
}

// Ref returns what the named ref currently points at: a Component for
// composite children, a host.Handle for host children, or nil.
func (b *Base) Ref(name string) any {
	if b.inst == nil {
		return nil
	}
	return b.inst.rec.lookupRef(b.inst.id, name)
}

// Host returns the first host node rendered by this component, or nil.
// It stays valid inside WillUnmount.
func (b *Base) Host() host.Handle {
	if b.inst == nil || b.inst.phase == PhaseDestroyed {
		return nil
	}
	return b.inst.hostHandle()
}

// IsMounted reports whether the component has finished mounting and has
// not started unmounting.
func (b *Base) IsMounted() bool {
	return b.inst != nil && b.inst.isMounted()
}

// OnUnmount registers a cleanup function to run when the component unmounts,
// after WillUnmount. Cleanups run in reverse registration order.
// Returns a function that unregisters the cleanup.
func (b *Base) OnUnmount(cleanup func()) func() {
	if cleanup == nil {
		return func() {}
	}
	if b.disposed {
		cleanup()
		return func() {}
	}

	index := len(b.disposers)
	b.disposers = append(b.disposers, cleanup)

	return func() {
		if index < len(b.disposers) {
			b.disposers[index] = nil
		}
	}
}

// runDisposers executes registered cleanups in reverse order, once.
func (b *Base) runDisposers() {
	if b.disposed {
		return
	}
	b.disposed = true

	for i := len(b.disposers) - 1; i >= 0; i-- {
		if b.disposers[i] != nil {
			b.disposers[i]()
		}
	}
	b.disposers = nil
}
