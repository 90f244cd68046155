// Package host defines the contract between the reconciler and a rendering
// target.
//
// The reconciler never interprets host nodes. It asks the target to create a
// node for a host element, to patch an existing node's properties, to destroy
// a node, and to arrange the ordered children of a parent node. Everything
// about what a node looks like belongs to the target.
package host

import "github.com/go-drift/composite/pkg/element"

// Handle is an opaque reference to a node owned by a rendering target.
// Handles must be comparable; pointer types are the usual choice.
type Handle any

// Target materializes host elements.
type Target interface {
	// MountHost creates a detached node for el. Children are mounted
	// separately and placed with ArrangeHost.
	MountHost(el *element.Element) (Handle, error)

	// PatchHost updates a node whose element changed at the same tree
	// position. Diffing prev against next is the target's job.
	PatchHost(h Handle, prev, next element.Props) error

	// DestroyHost releases a node and detaches it from its parent.
	// Descendants are destroyed by their own DestroyHost calls.
	DestroyHost(h Handle) error

	// ArrangeHost makes children the ordered child list of parent, inserting,
	// moving, or detaching nodes as required. The parent may be a container
	// handle supplied by the application.
	ArrangeHost(parent Handle, children []Handle) error
}
