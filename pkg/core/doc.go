// Package core reconciles trees of composite components against a rendering
// target.
//
// A composite component is a Go value that renders an element description
// from its props, state, and context. The reconciler owns every mounted
// component: it constructs it, drives its lifecycle hooks, batches its state
// updates, keeps the refs its owner registered, and hands it the context
// values its ancestors provide. Host elements (element.Tag types) are passed
// to a host.Target, which materializes them; the reconciler only decides
// which nodes to create, patch, move, and destroy.
//
// # Components
//
// A component embeds [Base] and implements [Component]. Hooks are optional
// interfaces detected by assertion:
//
//	type toggle struct {
//	    core.Base
//	}
//
//	func (t *toggle) InitialState() core.State {
//	    return map[string]any{"on": false}
//	}
//
//	func (t *toggle) Render(ctx *core.RenderContext) *element.Element {
//	    tag := element.Tag("off")
//	    if t.Get("on") == true {
//	        tag = "on"
//	    }
//	    return ctx.Element(tag, element.Props{"ref": "light"})
//	}
//
//	var Toggle = &core.Class{
//	    Name: "Toggle",
//	    New:  func(element.Props) core.Component { return &toggle{} },
//	}
//
// Mount a tree with a [Reconciler]:
//
//	r := core.New(target)
//	c, err := r.Mount(element.New(Toggle, nil), container)
//
// # Updates and Batching
//
// [Base.SetState] queues a partial state. Outside a batch the update pass
// runs before SetState returns. Inside [Reconciler.BatchedUpdates], and
// inside any hook, requests are queued and each dirty component gets one
// pass when the outermost batch closes, in the order the components were
// first dirtied.
//
// # Context
//
// A component that implements [ChildContextProvider] contributes values to
// its subtree. Descendants see only the keys their Class lists in
// ContextTypes; the nearest provider of a key wins.
//
// # Errors
//
// A panic inside a hook is returned from the top-level call as an
// errors.LifecycleError. Misuse such as updating an unmounted component is
// reported as an errors.Warning through the configured handler.
package core
