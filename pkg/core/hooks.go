package core

// Disposable is a resource released when its component unmounts.
type Disposable interface {
	Dispose()
}

// UseDisposable creates a resource and registers it for disposal when the
// component unmounts.
//
// Example:
//
//	func (c *ticker) WillMount() {
//	    c.timer = core.UseDisposable(c, func() *clock.Timer {
//	        return clock.NewTimer(time.Second)
//	    })
//	}
func UseDisposable[D Disposable](c componentBase, create func() D) D {
	base := c.componentBase()
	resource := create()
	base.OnUnmount(resource.Dispose)
	return resource
}

// UseSubscription subscribes to an external source and forces an update
// pass each time it notifies. subscribe returns the function that cancels
// the subscription; it runs when the component unmounts.
//
// Example:
//
//	func (c *status) DidMount() {
//	    core.UseSubscription(c, c.Props().Get("feed").(*Feed).Subscribe)
//	}
func UseSubscription(c componentBase, subscribe func(notify func()) (cancel func())) {
	base := c.componentBase()
	cancel := subscribe(func() {
		base.ForceUpdate(nil)
	})
	if cancel != nil {
		base.OnUnmount(cancel)
	}
}

// Managed holds a value outside the component state and requests an update
// pass whenever it is set.
//
// Example:
//
//	type counter struct {
//	    core.Base
//	    count *core.Managed[int]
//	}
//
//	func (c *counter) WillMount() {
//	    c.count = core.NewManaged(c, 0)
//	}
//
//	func (c *counter) Render(ctx *core.RenderContext) *element.Element {
//	    return ctx.Element(element.Tag("span"), nil, element.Text(strconv.Itoa(c.count.Value())))
//	}
type Managed[T any] struct {
	base  *Base
	value T
}

// NewManaged creates a managed value bound to c.
func NewManaged[T any](c componentBase, initial T) *Managed[T] {
	return &Managed[T]{
		base:  c.componentBase(),
		value: initial,
	}
}

// Value returns the current value.
func (m *Managed[T]) Value() T {
	return m.value
}

// Set stores value and forces an update pass.
func (m *Managed[T]) Set(value T) error {
	m.value = value
	return m.base.ForceUpdate(nil)
}

// Update applies transform to the current value and forces an update pass.
func (m *Managed[T]) Update(transform func(T) T) error {
	m.value = transform(m.value)
	return m.base.ForceUpdate(nil)
}
