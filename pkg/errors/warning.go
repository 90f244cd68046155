package errors

import (
	"fmt"
	"time"
)

// Code identifies a reported misuse condition. Codes are stable and safe to
// match on.
type Code string

const (
	// CodeNoopUpdate: a state update, forced update, or replacement was
	// requested for a component that is not mounted.
	CodeNoopUpdate Code = "noop-update"
	// CodeUpdateDuringRender: a state update was requested while a render
	// pass was in progress.
	CodeUpdateDuringRender Code = "update-during-render"
	// CodeUpdateInChildContext: a state update was requested from ChildContext.
	CodeUpdateInChildContext Code = "update-in-child-context"
	// CodeShouldUpdateUndecided: ShouldUpdate returned the zero Decision.
	CodeShouldUpdateUndecided Code = "should-update-undecided"
	// CodeNestedRender: a top-level Mount, Update, or Unmount ran from
	// inside a render method.
	CodeNestedRender Code = "nested-render"
	// CodeUnknownHook: a component declares a method that looks like a
	// lifecycle hook but is not one.
	CodeUnknownHook Code = "unknown-hook"
	// CodePropsMismatch: a constructor initialized its base with props that
	// differ from the ones it was given.
	CodePropsMismatch Code = "props-mismatch"
)

// Warning is a reported, non-fatal diagnostic.
type Warning struct {
	// Code identifies the condition.
	Code Code
	// Component names the component involved, if any.
	Component string
	// Message is the human-readable text. Messages are stable per Code.
	Message string
	// StackTrace is captured when debug mode is enabled.
	StackTrace string
	// Timestamp is when the warning was reported.
	Timestamp time.Time
}

func (w *Warning) String() string {
	return fmt.Sprintf("Warning: %s", w.Message)
}

// NoopUpdateWarning reports an update requested on a component that is not mounted.
func NoopUpdateWarning(method, component string) *Warning {
	return &Warning{
		Code:      CodeNoopUpdate,
		Component: component,
		Message: fmt.Sprintf("%s(...): Can only update a mounted or mounting component. "+
			"This usually means you called %s() on an unmounted component. "+
			"This is a no-op. Please check the code for the %s component.", method, method, component),
	}
}

// UpdateDuringRenderWarning reports a state update issued while rendering.
func UpdateDuringRenderWarning(method, component string) *Warning {
	return &Warning{
		Code:      CodeUpdateDuringRender,
		Component: component,
		Message: fmt.Sprintf("%s(...): Cannot update during an existing state transition "+
			"(such as within Render or another component's constructor). "+
			"Render methods should be a pure function of props and state; "+
			"constructor side-effects are an anti-pattern, but can be moved to WillMount.", method),
	}
}

// UpdateInChildContextWarning reports a state update issued from ChildContext.
func UpdateInChildContextWarning(method, component string) *Warning {
	return &Warning{
		Code:      CodeUpdateInChildContext,
		Component: component,
		Message:   fmt.Sprintf("%s(...): Cannot call %s() inside ChildContext()", method, method),
	}
}

// ShouldUpdateUndecidedWarning reports a ShouldUpdate hook that made no decision.
func ShouldUpdateUndecidedWarning(component string) *Warning {
	return &Warning{
		Code:      CodeShouldUpdateUndecided,
		Component: component,
		Message: fmt.Sprintf("%s.ShouldUpdate(): Returned Undecided instead of a decision. "+
			"Make sure to return Proceed or Skip.", component),
	}
}

// NestedRenderWarning reports a top-level operation started from a render method.
func NestedRenderWarning(op, component string) *Warning {
	return &Warning{
		Code:      CodeNestedRender,
		Component: component,
		Message: fmt.Sprintf("%s(): Render methods should be a pure function of props and state; "+
			"triggering nested component updates from render is not allowed. "+
			"If necessary, trigger nested updates in DidUpdate. "+
			"Check the render method of %s.", op, component),
	}
}

// UnknownHookWarning reports a method name that resembles a lifecycle hook.
func UnknownHookWarning(component, method, suggestion string) *Warning {
	return &Warning{
		Code:      CodeUnknownHook,
		Component: component,
		Message: fmt.Sprintf("%s has a method called %s(). But there is no such lifecycle method. "+
			"Did you mean %s()?", component, method, suggestion),
	}
}

// PropsMismatchWarning reports a constructor that initialized its base with
// props other than the ones it received.
func PropsMismatchWarning(component string) *Warning {
	return &Warning{
		Code:      CodePropsMismatch,
		Component: component,
		Message: fmt.Sprintf("%s(...): When calling Init() in `%s`, make sure to pass "+
			"up the same props that your component's constructor was passed.", component, component),
	}
}
