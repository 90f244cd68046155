package core

import (
	"github.com/go-drift/composite/pkg/element"
)

// State is the state value of a component. It may be any value: a
// map[string]any, a struct pointer, or a scalar. See [Base.SetState] for how
// partial updates are applied to each shape.
type State = any

// Component is the live object behind one mounted composite element.
// Implementations embed [Base] and add any of the optional hook interfaces
// below; the reconciler detects hooks by interface assertion.
type Component interface {
	Render(ctx *RenderContext) *element.Element
}

// Class is a composite factory. Elements whose Type is a *Class are mounted
// by calling New and driving the resulting Component through its lifecycle.
// Two elements have the same type only when they point at the same Class.
type Class struct {
	// Name is used in diagnostics.
	Name string
	// New constructs a component for the given props. The props already
	// include defaults; the map must not be modified.
	New func(props element.Props) Component
	// DefaultProps fill in keys that are absent or nil in element props.
	DefaultProps element.Props
	// ContextTypes lists the context keys the component reads. Only these
	// keys are visible through Base.Context.
	ContextTypes []string
}

func (c *Class) String() string {
	return c.name()
}

func (c *Class) name() string {
	if c == nil || c.Name == "" {
		return "Component"
	}
	return c.Name
}

// resolveProps copies props and applies defaults for absent or nil keys.
// The element's own props are never modified.
func (c *Class) resolveProps(props element.Props) element.Props {
	out := props.Clone()
	for key, value := range c.DefaultProps {
		if current, ok := out[key]; !ok || current == nil {
			out[key] = value
		}
	}
	return out
}

// Decision is the result of ShouldUpdate.
type Decision int

const (
	// Undecided is the zero value. Returning it is reported as misuse and
	// treated like Proceed.
	Undecided Decision = iota
	// Proceed re-renders the component.
	Proceed
	// Skip commits the new props, state, and context without rendering.
	Skip
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	default:
		return "undecided"
	}
}

// StateInitializer supplies the initial state when a component mounts.
type StateInitializer interface {
	InitialState() State
}

// WillMounter runs before the first render. State set here is applied
// before that render without an extra pass.
type WillMounter interface {
	WillMount()
}

// DidMounter runs after the component and its whole subtree are mounted.
// Children run before their parents.
type DidMounter interface {
	DidMount()
}

// PropsReceiver runs when the owner supplies a new element or the inherited
// context changes. State set here joins the same update pass.
type PropsReceiver interface {
	WillReceiveProps(next element.Props, nextCtx *Context)
}

// UpdateDecider gates re-rendering. Forced updates bypass it.
type UpdateDecider interface {
	ShouldUpdate(next element.Props, nextState State, nextCtx *Context) Decision
}

// WillUpdater runs before a re-render, while the old values are still current.
type WillUpdater interface {
	WillUpdate(next element.Props, nextState State, nextCtx *Context)
}

// DidUpdater runs after a re-render with the values it replaced.
type DidUpdater interface {
	DidUpdate(prevProps element.Props, prevState State, prevCtx *Context)
}

// WillUnmounter runs before the component's subtree is torn down. The host
// node is still reachable through Base.Host.
type WillUnmounter interface {
	WillUnmount()
}

// ChildContextProvider contributes context values to the subtree. Its keys
// override the same keys inherited from ancestors.
type ChildContextProvider interface {
	ChildContext() map[string]any
}

// Stateless creates a Class for a component that only renders. The render
// function receives the resolved props; the masked context is available
// through ctx.Context.
//
//	greeting := core.Stateless("Greeting", func(ctx *core.RenderContext, props element.Props) *element.Element {
//	    return element.New(element.Tag("p"), nil, element.Text("Hello, "+props.GetString("name")))
//	})
func Stateless(name string, render func(ctx *RenderContext, props element.Props) *element.Element, contextTypes ...string) *Class {
	return &Class{
		Name:         name,
		ContextTypes: contextTypes,
		New: func(element.Props) Component {
			return &statelessComponent{render: render}
		},
	}
}

type statelessComponent struct {
	Base
	render func(ctx *RenderContext, props element.Props) *element.Element
}

func (s *statelessComponent) Render(ctx *RenderContext) *element.Element {
	return s.render(ctx, s.Props())
}

// RenderContext is handed to Render. It carries the rendering instance so
// elements created through it are owned by that instance, which is what
// makes their refs resolvable.
type RenderContext struct {
	owner *Instance
}

// Element creates an element owned by the rendering component. Arguments
// follow element.New.
func (c *RenderContext) Element(typ any, props element.Props, children ...*element.Element) *element.Element {
	el := element.New(typ, props, children...)
	el.Owner = c.owner.id
	return el
}

// Context returns the rendering component's masked context.
func (c *RenderContext) Context() *Context {
	return c.owner.context
}

// Children returns the children of the rendering component's element.
func (c *RenderContext) Children() []*element.Element {
	return c.owner.element.Children
}

// Owner returns the rendering component.
func (c *RenderContext) Owner() Component {
	return c.owner.component
}
