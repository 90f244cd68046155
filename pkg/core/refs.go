package core

import "github.com/go-drift/composite/pkg/element"

// refRegistry maps (owner, ref name) to the node currently bound there.
type refRegistry struct {
	entries map[InstanceID]map[string]node
}

func (g *refRegistry) attach(owner InstanceID, name string, n node) {
	if g.entries == nil {
		g.entries = make(map[InstanceID]map[string]node)
	}
	refs := g.entries[owner]
	if refs == nil {
		refs = make(map[string]node)
		g.entries[owner] = refs
	}
	refs[name] = n
}

// detach removes the entry only while it still points at n.
func (g *refRegistry) detach(owner InstanceID, name string, n node) {
	refs := g.entries[owner]
	if refs == nil || refs[name] != n {
		return
	}
	delete(refs, name)
	if len(refs) == 0 {
		delete(g.entries, owner)
	}
}

func (g *refRegistry) release(owner InstanceID) {
	delete(g.entries, owner)
}

func (g *refRegistry) lookup(owner InstanceID, name string) node {
	return g.entries[owner][name]
}

func (g *refRegistry) count(owner InstanceID) int {
	return len(g.entries[owner])
}

// queueRefAttach binds el's ref to n when the current transaction commits.
// The binding is skipped if by then n is gone, n carries a different ref,
// or the owner has been destroyed.
func (r *Reconciler) queueRefAttach(el *element.Element, n node) {
	if el.Ref == "" || el.Owner == 0 {
		return
	}
	name, owner := el.Ref, el.Owner
	r.deferCommit(func() error {
		if !n.alive() {
			return nil
		}
		current := n.currentElement()
		if current.Ref != name || current.Owner != owner {
			return nil
		}
		if _, ok := r.instances[owner]; !ok {
			return nil
		}
		r.refs.attach(owner, name, n)
		return nil
	})
}

// detachRef removes el's binding to n immediately.
func (r *Reconciler) detachRef(el *element.Element, n node) {
	if el == nil || el.Ref == "" || el.Owner == 0 {
		return
	}
	r.refs.detach(el.Owner, el.Ref, n)
}

// refreshRef rebinds n after its element changed from prev to next. An old
// binding under a different name or owner is dropped at once; the new one
// is queued like any other attachment.
func (r *Reconciler) refreshRef(prev, next *element.Element, n node) {
	if prev.Ref != next.Ref || prev.Owner != next.Owner {
		r.detachRef(prev, n)
	}
	r.queueRefAttach(next, n)
}

// lookupRef returns the public value bound to (owner, name), or nil.
func (r *Reconciler) lookupRef(owner InstanceID, name string) any {
	return publicOf(r.refs.lookup(owner, name))
}
