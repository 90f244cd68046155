package core

import (
	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/host"
)

// InstanceID indexes an instance in its reconciler's arena. Element owners
// and ref registrations refer to instances by ID only.
type InstanceID = element.OwnerID

// Phase is the lifecycle phase of an instance.
type Phase int

const (
	// PhaseUnmounted is the phase of an instance that has not started mounting.
	PhaseUnmounted Phase = iota
	// PhaseMounting covers construction through the first render.
	PhaseMounting
	// PhaseMounted is the resting phase of a live instance.
	PhaseMounted
	// PhaseUpdating covers one update pass. It returns to PhaseMounted.
	PhaseUpdating
	// PhaseUnmounting covers WillUnmount and the teardown of the subtree.
	PhaseUnmounting
	// PhaseDestroyed is terminal.
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseMounting:
		return "mounting"
	case PhaseMounted:
		return "mounted"
	case PhaseUpdating:
		return "updating"
	case PhaseUnmounting:
		return "unmounting"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unmounted"
	}
}

// node is one materialized tree position: a composite instance or a host node.
type node interface {
	currentElement() *element.Element
	hostHandle() host.Handle
	links() *treeLinks
	public() any
	alive() bool
}

// treeLinks connect a node to its position. Parent links are lookups only;
// nodes are owned by their parent's children list or by a root.
type treeLinks struct {
	parent    node
	container host.Handle
	slot      string
}

// Instance is the live record behind one mounted composite element.
type Instance struct {
	id        InstanceID
	rec       *Reconciler
	class     *Class
	component Component
	base      *Base

	element  *element.Element
	props    element.Props
	state    State
	context  *Context
	unmasked *Context
	childCtx *Context
	phase    Phase

	queue     []Update
	callbacks []func()
	force     bool

	rendered node
	treeLinks
}

// ID returns the arena index of the instance.
func (i *Instance) ID() InstanceID { return i.id }

// Component returns the user component.
func (i *Instance) Component() Component { return i.component }

// Props returns the committed props.
func (i *Instance) Props() element.Props { return i.props }

// State returns the committed state.
func (i *Instance) State() State { return i.state }

// Context returns the committed masked context.
func (i *Instance) Context() *Context { return i.context }

// Phase returns the lifecycle phase.
func (i *Instance) Phase() Phase { return i.phase }

// Name returns the class name used in diagnostics.
func (i *Instance) Name() string { return i.class.name() }

// IsMounted reports whether the instance is mounted or updating.
func (i *Instance) IsMounted() bool { return i.isMounted() }

func (i *Instance) isMounted() bool {
	return i.phase == PhaseMounted || i.phase == PhaseUpdating
}

func (i *Instance) currentElement() *element.Element { return i.element }

func (i *Instance) hostHandle() host.Handle {
	if i.rendered == nil {
		return nil
	}
	return i.rendered.hostHandle()
}

func (i *Instance) links() *treeLinks { return &i.treeLinks }

func (i *Instance) public() any { return i.component }

func (i *Instance) alive() bool { return i.isMounted() }

// hostNode is a mounted host element.
type hostNode struct {
	element   *element.Element
	handle    host.Handle
	children  []node
	context   *Context
	destroyed bool
	treeLinks
}

func (h *hostNode) currentElement() *element.Element { return h.element }

func (h *hostNode) hostHandle() host.Handle { return h.handle }

func (h *hostNode) links() *treeLinks { return &h.treeLinks }

func (h *hostNode) public() any { return h.handle }

func (h *hostNode) alive() bool { return !h.destroyed }

// publicOf returns the value exposed for n: the component or the host handle.
func publicOf(n node) any {
	if n == nil {
		return nil
	}
	return n.public()
}

// baseOf returns the embedded Base of c, if any.
func baseOf(c Component) *Base {
	if cb, ok := c.(componentBase); ok {
		return cb.componentBase()
	}
	return nil
}
