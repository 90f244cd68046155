package core

import (
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/errors"
	"github.com/go-drift/composite/pkg/host"
)

// canUpdate reports whether next can be applied to the node currently
// showing prev. Types must be identical and keys equal.
func canUpdate(prev, next *element.Element) bool {
	if prev == nil || next == nil || prev.Key != next.Key {
		return false
	}
	switch pt := prev.Type.(type) {
	case element.Tag:
		nt, ok := next.Type.(element.Tag)
		return ok && pt == nt
	case *Class:
		nt, ok := next.Type.(*Class)
		return ok && pt == nt
	default:
		return false
	}
}

// childName identifies a child among its siblings: by key when it has one,
// by position otherwise.
func childName(el *element.Element, index int) string {
	if el.Key != "" {
		return "$" + el.Key
	}
	return "." + strconv.Itoa(index)
}

// mountNode materializes el below parent. On failure it returns whatever
// part of the subtree was mounted, so its completed descendants stay
// reachable for a later unmount.
func (r *Reconciler) mountNode(el *element.Element, parent node, ctx *Context) (node, error) {
	switch t := el.Type.(type) {
	case element.Tag:
		h, err := r.mountHost(el, parent, ctx)
		if h == nil {
			return nil, err
		}
		return h, err
	case *Class:
		if t != nil {
			inst, err := r.mountComposite(el, t, parent, ctx)
			if inst == nil {
				return nil, err
			}
			return inst, err
		}
	}
	return nil, &errors.ReconcileError{
		Op:        "core.mount",
		Kind:      errors.KindElement,
		Err:       errors.ErrInvalidElement,
		Component: el.TypeName(),
		Timestamp: time.Now(),
	}
}

func (r *Reconciler) mountHost(el *element.Element, parent node, ctx *Context) (*hostNode, error) {
	var handle host.Handle
	if err := r.callTarget("MountHost", el, func() (err error) {
		handle, err = r.target.MountHost(el)
		return err
	}); err != nil {
		return nil, err
	}

	h := &hostNode{element: el, handle: handle, context: ctx}
	h.parent = parent
	for i, childEl := range el.Children {
		if childEl == nil {
			continue
		}
		child, err := r.mountNode(childEl, h, ctx)
		if child != nil {
			child.links().slot = childName(childEl, i)
			h.children = append(h.children, child)
		}
		if err != nil {
			return h, err
		}
	}
	if err := r.arrange(h); err != nil {
		return h, err
	}
	r.queueRefAttach(el, h)
	return h, nil
}

func (r *Reconciler) mountComposite(el *element.Element, class *Class, parent node, ctx *Context) (*Instance, error) {
	props := class.resolveProps(el.Props)
	component, err := r.construct(class, props)
	if err != nil {
		return nil, err
	}

	r.nextID++
	inst := &Instance{
		id:        r.nextID,
		rec:       r,
		class:     class,
		component: component,
		element:   el,
		props:     props,
		context:   maskContext(ctx, class.ContextTypes),
		unmasked:  ctx,
		phase:     PhaseMounting,
	}
	inst.parent = parent
	r.instances[inst.id] = inst
	if b := baseOf(component); b != nil {
		b.inst = inst
		inst.base = b
	}

	if initializer, ok := component.(StateInitializer); ok {
		if err := r.invoke(inst, "InitialState", func() {
			inst.state = initializer.InitialState()
		}); err != nil {
			return inst, err
		}
	}
	if mounter, ok := component.(WillMounter); ok {
		if err := r.invoke(inst, "WillMount", mounter.WillMount); err != nil {
			return inst, err
		}
		state, err := r.drain(inst, inst.props)
		inst.state = state
		inst.force = false
		if err != nil {
			return inst, err
		}
	}
	callbacks := inst.callbacks
	inst.callbacks = nil

	childCtx, err := r.computeChildContext(inst)
	if err != nil {
		return inst, err
	}
	out, err := r.render(inst)
	if err != nil {
		return inst, err
	}
	if out != nil {
		rendered, err := r.mountNode(out, inst, childCtx)
		inst.rendered = rendered
		if err != nil {
			return inst, err
		}
	}

	inst.phase = PhaseMounted
	r.queueRefAttach(el, inst)
	if mounter, ok := component.(DidMounter); ok {
		r.deferCommit(func() error {
			if !inst.isMounted() {
				return nil
			}
			return r.invoke(inst, "DidMount", mounter.DidMount)
		})
	}
	r.queueCallbacks(inst, callbacks)
	return inst, nil
}

// queueCallbacks moves state callbacks of inst to the commit queue.
// Callbacks requested after the queue was drained stay pending for the
// next pass. A callback whose instance unmounts before the commit is
// dropped.
func (r *Reconciler) queueCallbacks(inst *Instance, callbacks []func()) {
	for _, cb := range callbacks {
		r.deferCommit(func() error {
			if !inst.isMounted() {
				return nil
			}
			return r.invoke(inst, "SetState callback", cb)
		})
	}
}

// receive applies a compatible element to an existing node.
func (r *Reconciler) receive(n node, next *element.Element, ctx *Context) error {
	switch n := n.(type) {
	case *Instance:
		return r.receiveComposite(n, next, ctx)
	case *hostNode:
		return r.receiveHost(n, next, ctx)
	}
	return nil
}

func (r *Reconciler) receiveComposite(inst *Instance, next *element.Element, ctx *Context) error {
	if next == inst.element && ctx == inst.unmasked {
		return nil
	}
	r.refreshRef(inst.element, next, inst)
	return r.updateComposite(inst, next, ctx)
}

// updateIfNecessary runs the pass of a dirty instance, if it still has work.
func (r *Reconciler) updateIfNecessary(inst *Instance) error {
	if inst.phase != PhaseMounted {
		return nil
	}
	if len(inst.queue) == 0 && !inst.force && len(inst.callbacks) == 0 {
		return nil
	}
	prevHandle := inst.hostHandle()
	if err := r.updateComposite(inst, inst.element, inst.unmasked); err != nil {
		return err
	}
	if inst.isMounted() && inst.hostHandle() != prevHandle {
		return r.rearrange(inst)
	}
	return nil
}

// updateComposite runs one update pass of inst against next and ctx.
func (r *Reconciler) updateComposite(inst *Instance, next *element.Element, ctx *Context) error {
	prevElement := inst.element
	prevProps, prevState, prevCtx := inst.props, inst.state, inst.context

	nextProps := prevProps
	if next != prevElement {
		nextProps = inst.class.resolveProps(next.Props)
	}
	nextCtx := prevCtx
	if ctx != inst.unmasked {
		nextCtx = reuseIfEqual(prevCtx, maskContext(ctx, inst.class.ContextTypes))
	}

	inst.phase = PhaseUpdating
	defer func() {
		if inst.phase == PhaseUpdating {
			inst.phase = PhaseMounted
		}
	}()

	if next != prevElement || ctx != inst.unmasked {
		if receiver, ok := inst.component.(PropsReceiver); ok {
			if err := r.invoke(inst, "WillReceiveProps", func() {
				receiver.WillReceiveProps(nextProps, nextCtx)
			}); err != nil {
				return err
			}
		}
	}

	nextState, err := r.drain(inst, nextProps)
	if err != nil {
		return err
	}
	force := inst.force
	inst.force = false
	callbacks := inst.callbacks
	inst.callbacks = nil

	decision := Proceed
	if decider, ok := inst.component.(UpdateDecider); ok && !force {
		if err := r.invoke(inst, "ShouldUpdate", func() {
			decision = decider.ShouldUpdate(nextProps, nextState, nextCtx)
		}); err != nil {
			return err
		}
		if decision != Proceed && decision != Skip {
			r.warn(errors.ShouldUpdateUndecidedWarning(inst.Name()))
			decision = Proceed
		}
	}

	commit := func() {
		inst.element = next
		inst.props = nextProps
		inst.state = nextState
		inst.context = nextCtx
		inst.unmasked = ctx
	}

	if decision == Skip {
		commit()
		r.queueCallbacks(inst, callbacks)
		return nil
	}

	if updater, ok := inst.component.(WillUpdater); ok {
		if err := r.invoke(inst, "WillUpdate", func() {
			updater.WillUpdate(nextProps, nextState, nextCtx)
		}); err != nil {
			return err
		}
	}
	commit()

	if err := r.renderAndReconcile(inst); err != nil {
		return err
	}

	if updater, ok := inst.component.(DidUpdater); ok {
		r.deferCommit(func() error {
			if !inst.isMounted() {
				return nil
			}
			return r.invoke(inst, "DidUpdate", func() {
				updater.DidUpdate(prevProps, prevState, prevCtx)
			})
		})
	}
	r.queueCallbacks(inst, callbacks)
	return nil
}

// renderAndReconcile renders inst with its committed values and reconciles
// the output against the previous rendered node.
func (r *Reconciler) renderAndReconcile(inst *Instance) error {
	childCtx, err := r.computeChildContext(inst)
	if err != nil {
		return err
	}
	out, err := r.render(inst)
	if err != nil {
		return err
	}
	rendered, err := r.reconcileChild(inst, inst.rendered, out, childCtx)
	inst.rendered = rendered
	return err
}

// reconcileChild reconciles the single child slot of parent.
func (r *Reconciler) reconcileChild(parent node, prev node, next *element.Element, ctx *Context) (node, error) {
	if prev != nil && next != nil && prev.alive() && canUpdate(prev.currentElement(), next) {
		return prev, r.receive(prev, next, ctx)
	}
	if prev != nil {
		if err := r.unmountNode(prev); err != nil {
			return nil, err
		}
	}
	if next == nil {
		return nil, nil
	}
	return r.mountNode(next, parent, ctx)
}

func (r *Reconciler) receiveHost(h *hostNode, next *element.Element, ctx *Context) error {
	if next == h.element && ctx == h.context {
		return nil
	}
	prev := h.element
	r.refreshRef(prev, next, h)
	if next != prev {
		if err := r.callTarget("PatchHost", next, func() error {
			return r.target.PatchHost(h.handle, prev.Props, next.Props)
		}); err != nil {
			return err
		}
	}
	h.element = next
	h.context = ctx
	return r.reconcileChildren(h, next.Children, ctx)
}

// reconcileChildren matches the children of h against next by name,
// keyed children first, then arranges the result.
func (r *Reconciler) reconcileChildren(h *hostNode, next []*element.Element, ctx *Context) error {
	previous := make(map[string]node, len(h.children))
	for _, child := range h.children {
		if _, dup := previous[child.links().slot]; !dup {
			previous[child.links().slot] = child
		}
	}
	matched := make(map[node]bool, len(h.children))

	children := make([]node, 0, len(next))
	var err error
	for i, el := range next {
		if el == nil {
			continue
		}
		name := childName(el, i)
		prev, ok := previous[name]
		if ok {
			delete(previous, name)
			matched[prev] = true
		}

		if ok && prev.alive() && canUpdate(prev.currentElement(), el) {
			children = append(children, prev)
			if err = r.receive(prev, el, ctx); err != nil {
				break
			}
			continue
		}
		if ok {
			if err = r.unmountNode(prev); err != nil {
				break
			}
		}
		var child node
		child, err = r.mountNode(el, h, ctx)
		if child != nil {
			child.links().slot = name
			children = append(children, child)
		}
		if err != nil {
			break
		}
	}

	// Unmatched previous children, in their previous order.
	var leftovers []node
	for _, child := range h.children {
		if !matched[child] {
			leftovers = append(leftovers, child)
		}
	}

	if err != nil {
		h.children = append(children, leftovers...)
		return err
	}

	h.children = children
	for _, child := range leftovers {
		err = multierr.Append(err, r.unmountNode(child))
	}
	return multierr.Append(err, r.arrange(h))
}

// arrange places the current host children of h.
func (r *Reconciler) arrange(h *hostNode) error {
	handles := make([]host.Handle, 0, len(h.children))
	for _, child := range h.children {
		if handle := child.hostHandle(); handle != nil {
			handles = append(handles, handle)
		}
	}
	return r.callTarget("ArrangeHost", h.element, func() error {
		return r.target.ArrangeHost(h.handle, handles)
	})
}

func (r *Reconciler) arrangeContainer(container host.Handle, n node) error {
	var handles []host.Handle
	if n != nil {
		if handle := n.hostHandle(); handle != nil {
			handles = []host.Handle{handle}
		}
	}
	return r.callTarget("ArrangeHost", nil, func() error {
		return r.target.ArrangeHost(container, handles)
	})
}

// rearrange re-places the host output of n after it changed outside its
// parent's reconciliation.
func (r *Reconciler) rearrange(n node) error {
	for {
		links := n.links()
		switch parent := links.parent.(type) {
		case *hostNode:
			return r.arrange(parent)
		case *Instance:
			n = parent
		default:
			if links.container == nil {
				return nil
			}
			return r.arrangeContainer(links.container, n)
		}
	}
}

// unmountNode tears down n and its subtree.
func (r *Reconciler) unmountNode(n node) error {
	switch n := n.(type) {
	case *Instance:
		return r.unmountComposite(n)
	case *hostNode:
		return r.unmountHost(n)
	}
	return nil
}

// unmountComposite runs WillUnmount, tears down the rendered subtree, and
// releases everything the instance holds. It runs at most once per instance;
// the teardown completes even when a hook fails, and the failures are
// returned.
func (r *Reconciler) unmountComposite(inst *Instance) error {
	switch inst.phase {
	case PhaseUnmounting, PhaseDestroyed:
		return nil
	}
	wasMounted := inst.isMounted()
	inst.phase = PhaseUnmounting
	r.detachRef(inst.element, inst)

	var err error
	if unmounter, ok := inst.component.(WillUnmounter); ok && wasMounted {
		err = multierr.Append(err, r.invoke(inst, "WillUnmount", unmounter.WillUnmount))
	}
	if inst.rendered != nil {
		err = multierr.Append(err, r.unmountNode(inst.rendered))
		inst.rendered = nil
	}

	r.refs.release(inst.id)
	inst.queue = nil
	inst.callbacks = nil
	inst.force = false
	if inst.base != nil {
		err = multierr.Append(err, r.invoke(inst, "OnUnmount", inst.base.runDisposers))
	}
	inst.phase = PhaseDestroyed
	delete(r.instances, inst.id)
	return err
}

func (r *Reconciler) unmountHost(h *hostNode) error {
	if h.destroyed {
		return nil
	}
	h.destroyed = true
	r.detachRef(h.element, h)

	var err error
	for _, child := range h.children {
		err = multierr.Append(err, r.unmountNode(child))
	}
	h.children = nil
	return multierr.Append(err, r.callTarget("DestroyHost", h.element, func() error {
		return r.target.DestroyHost(h.handle)
	}))
}
