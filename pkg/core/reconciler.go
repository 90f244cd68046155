package core

import (
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/errors"
	"github.com/go-drift/composite/pkg/host"
)

// Reconciler keeps the trees mounted into containers in sync with the
// elements supplied for them.
//
// A Reconciler is not safe for concurrent use. Hooks may call back into it
// re-entrantly: request updates, mount or unmount other containers, or
// panic.
type Reconciler struct {
	target     host.Target
	handler    errors.ErrorHandler
	logger     *zap.Logger
	maxCascade int

	nextID    InstanceID
	instances map[InstanceID]*Instance
	roots     map[host.Handle]*root
	refs      refRegistry
	batch     batch

	rendering      *renderFrame
	childContextOf *Instance
	checked        map[*Class]bool
}

// root is the tree mounted into one container. failed marks a root whose
// first mount did not finish; a failed update leaves the mounted tree in
// place for the next update to reconcile.
type root struct {
	container host.Handle
	element   *element.Element
	node      node
	failed    bool
}

// renderFrame marks a Render call in progress. Frames nest when a render
// triggers another top-level operation.
type renderFrame struct {
	inst *Instance
	prev *renderFrame
}

// New creates a Reconciler that materializes host elements through target.
func New(target host.Target, opts ...Option) *Reconciler {
	r := &Reconciler{
		target:     target,
		logger:     zap.NewNop(),
		maxCascade: DefaultMaxCascade,
		instances:  make(map[InstanceID]*Instance),
		roots:      make(map[host.Handle]*root),
		checked:    make(map[*Class]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount renders el into container and returns its public value: the
// Component for a composite element, the host handle for a host element.
// A compatible tree already in container is updated instead of replaced.
func (r *Reconciler) Mount(el *element.Element, container host.Handle) (any, error) {
	return r.renderRoot("Mount", el, container)
}

// Update re-renders container with el, reusing the existing tree when the
// root types and keys match and remounting otherwise.
func (r *Reconciler) Update(el *element.Element, container host.Handle) (any, error) {
	return r.renderRoot("Update", el, container)
}

// Unmount tears down the tree in container. It reports whether there was a
// tree to unmount. Every WillUnmount hook in the tree runs exactly once, and
// the first hook or target error is returned after the teardown completes.
func (r *Reconciler) Unmount(container host.Handle) (bool, error) {
	defer r.enterTopLevel("Unmount")()

	rt, ok := r.roots[container]
	if !ok {
		return false, nil
	}
	delete(r.roots, container)
	r.logger.Debug("unmount root", zap.String("type", rt.element.TypeName()))

	err := r.transact(func() error {
		return r.unmountRoot(rt)
	})
	return true, err
}

func (r *Reconciler) renderRoot(op string, el *element.Element, container host.Handle) (any, error) {
	if container == nil {
		return nil, &errors.ReconcileError{Op: "core." + op, Kind: errors.KindElement, Err: errors.ErrNilContainer, Timestamp: time.Now()}
	}
	if el == nil {
		return nil, &errors.ReconcileError{Op: "core." + op, Kind: errors.KindElement, Err: errors.ErrInvalidElement, Timestamp: time.Now()}
	}
	defer r.enterTopLevel(op)()
	r.logger.Debug("render root", zap.String("op", op), zap.String("type", el.TypeName()))

	err := r.transact(func() error {
		rt, ok := r.roots[container]
		if ok && !rt.failed && rt.node != nil && rt.node.alive() && canUpdate(rt.element, el) {
			prevHandle := rt.node.hostHandle()
			rt.element = el
			if err := r.receive(rt.node, el, emptyContext); err != nil {
				return err
			}
			if rt.node.hostHandle() != prevHandle {
				return r.arrangeContainer(container, rt.node)
			}
			return nil
		}

		if ok {
			delete(r.roots, container)
			if err := r.unmountRoot(rt); err != nil {
				return err
			}
		}

		rt = &root{container: container, element: el}
		r.roots[container] = rt
		n, err := r.mountNode(el, nil, emptyContext)
		rt.node = n
		if n != nil {
			n.links().container = container
		}
		if err != nil {
			rt.failed = true
			return err
		}
		return r.arrangeContainer(container, n)
	})
	if err != nil {
		return nil, err
	}
	if rt, ok := r.roots[container]; ok {
		return publicOf(rt.node), nil
	}
	return nil, nil
}

func (r *Reconciler) unmountRoot(rt *root) error {
	if rt.node == nil {
		return nil
	}
	return r.unmountNode(rt.node)
}

// enterTopLevel reports a top-level operation started from a render method
// and clears the rendering markers for its duration. The returned function
// restores them.
func (r *Reconciler) enterTopLevel(op string) func() {
	if r.rendering != nil {
		r.warn(errors.NestedRenderWarning(op, r.rendering.inst.Name()))
	}
	rendering, childContextOf := r.rendering, r.childContextOf
	r.rendering, r.childContextOf = nil, nil
	return func() {
		r.rendering, r.childContextOf = rendering, childContextOf
	}
}

// FindHost returns the first host handle rendered by c, or nil when c is not
// mounted by this reconciler or renders nothing.
func (r *Reconciler) FindHost(c Component) host.Handle {
	inst := r.InstanceOf(c)
	if inst == nil || inst.phase == PhaseDestroyed {
		return nil
	}
	return inst.hostHandle()
}

// InstanceOf returns the live instance record of c, or nil.
func (r *Reconciler) InstanceOf(c Component) *Instance {
	b := baseOf(c)
	if b == nil || b.inst == nil || b.inst.rec != r {
		return nil
	}
	if _, ok := r.instances[b.inst.id]; !ok {
		return nil
	}
	return b.inst
}

// Root returns the public value mounted in container, or nil.
func (r *Reconciler) Root(container host.Handle) any {
	rt, ok := r.roots[container]
	if !ok {
		return nil
	}
	return publicOf(rt.node)
}

func (r *Reconciler) warn(w *errors.Warning) {
	if DebugMode {
		w.StackTrace = errors.CaptureStack()
	}
	r.logger.Debug("warning", zap.String("code", string(w.Code)), zap.String("component", w.Component))
	errors.ReportWarningTo(r.handler, w)
}

// report passes an error that aborted a transaction to the handler.
func (r *Reconciler) report(err error) {
	r.logger.Debug("transaction failed", zap.Error(err))
	switch e := err.(type) {
	case *errors.PanicError:
		errors.ReportPanicTo(r.handler, e)
	case *errors.ReconcileError:
		errors.ReportTo(r.handler, e)
	case *errors.LifecycleError:
		errors.ReportTo(r.handler, &errors.ReconcileError{
			Op:         "core." + e.Hook,
			Kind:       errors.KindLifecycle,
			Err:        e,
			Component:  e.Component,
			StackTrace: e.StackTrace,
		})
	default:
		errors.ReportTo(r.handler, &errors.ReconcileError{
			Op:   "core.transaction",
			Kind: errors.KindLifecycle,
			Err:  err,
		})
	}
}

// invoke calls a hook of inst and converts a panic into a LifecycleError.
func (r *Reconciler) invoke(inst *Instance, hook string, fn func()) error {
	return invokeNamed(inst.Name(), hook, fn)
}

func invokeNamed(component, hook string, fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			le := &errors.LifecycleError{
				Component: component,
				Hook:      hook,
				Recovered: v,
				Timestamp: time.Now(),
			}
			if e, ok := v.(error); ok {
				le.Err = e
			}
			if DebugMode {
				le.StackTrace = errors.CaptureStack()
			}
			err = le
		}
	}()
	fn()
	return nil
}

// render calls Render with the rendering marker set.
func (r *Reconciler) render(inst *Instance) (*element.Element, error) {
	frame := &renderFrame{inst: inst, prev: r.rendering}
	r.rendering = frame
	defer func() { r.rendering = frame.prev }()

	var out *element.Element
	err := r.invoke(inst, "Render", func() {
		out = inst.component.Render(&RenderContext{owner: inst})
	})
	return out, err
}

// construct creates the component for class and checks the constructor's
// use of Base.Init.
func (r *Reconciler) construct(class *Class, props element.Props) (Component, error) {
	if class.New == nil {
		return nil, &errors.ReconcileError{
			Op:        "core.construct",
			Kind:      errors.KindElement,
			Err:       errors.ErrInvalidElement,
			Component: class.name(),
			Timestamp: time.Now(),
		}
	}

	var c Component
	if err := invokeNamed(class.name(), "New", func() {
		c = class.New(props)
	}); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &errors.ReconcileError{
			Op:        "core.construct",
			Kind:      errors.KindElement,
			Err:       errors.ErrInvalidElement,
			Component: class.name(),
			Timestamp: time.Now(),
		}
	}

	if b := baseOf(c); b != nil && b.initCalled && !reflect.DeepEqual(b.initProps, props) {
		r.warn(errors.PropsMismatchWarning(class.name()))
	}
	r.checkHooks(class, c)
	return c, nil
}

// misspelledHooks maps method names that look like lifecycle hooks to the
// hook that was probably meant.
var misspelledHooks = []struct{ name, hook string }{
	{"ComponentDidMount", "DidMount"},
	{"ComponentDidUpdate", "DidUpdate"},
	{"ComponentWillMount", "WillMount"},
	{"ComponentWillReceiveProps", "WillReceiveProps"},
	{"ComponentWillUnmount", "WillUnmount"},
	{"ComponentWillUpdate", "WillUpdate"},
	{"DidReceiveProps", "WillReceiveProps"},
	{"DidUnmount", "WillUnmount"},
	{"GetChildContext", "ChildContext"},
	{"GetInitialState", "InitialState"},
	{"ShouldComponentUpdate", "ShouldUpdate"},
	{"WillRecieveProps", "WillReceiveProps"},
}

// checkHooks reports misspelled hooks once per class.
func (r *Reconciler) checkHooks(class *Class, c Component) {
	if r.checked[class] {
		return
	}
	r.checked[class] = true

	typ := reflect.TypeOf(c)
	for _, m := range misspelledHooks {
		if _, ok := typ.MethodByName(m.name); ok {
			r.warn(errors.UnknownHookWarning(class.name(), m.name, m.hook))
		}
	}
}

// hostError wraps a target failure.
func (r *Reconciler) hostError(op string, el *element.Element, err error) *errors.ReconcileError {
	re := &errors.ReconcileError{
		Op:        "host." + op,
		Kind:      errors.KindHost,
		Err:       err,
		Timestamp: time.Now(),
	}
	if el != nil {
		re.Component = el.TypeName()
	}
	if DebugMode {
		re.StackTrace = errors.CaptureStack()
	}
	return re
}

// callTarget calls into the rendering target, converting a panic into a
// ReconcileError.
func (r *Reconciler) callTarget(op string, el *element.Element, fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			re := r.hostError(op, el, &errors.PanicError{Op: "host." + op, Value: v, Timestamp: time.Now()})
			re.Kind = errors.KindPanic
			err = re
		}
	}()
	if err := fn(); err != nil {
		return r.hostError(op, el, err)
	}
	return nil
}
