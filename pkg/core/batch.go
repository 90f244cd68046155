package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/composite/pkg/errors"
)

// batch tracks the open transaction, the instances dirtied inside it, and
// the commit callbacks that run when it closes.
type batch struct {
	depth    int
	dirty    []*Instance
	dirtySet map[*Instance]bool
	ready    []func() error
}

// schedule marks inst dirty. Outside a transaction a transaction is opened
// around the flush of just this request.
func (r *Reconciler) schedule(inst *Instance) error {
	b := &r.batch
	if !b.dirtySet[inst] {
		if b.dirtySet == nil {
			b.dirtySet = make(map[*Instance]bool)
		}
		b.dirtySet[inst] = true
		b.dirty = append(b.dirty, inst)
	}
	if b.depth > 0 {
		return nil
	}
	return r.transact(func() error { return nil })
}

// deferCommit queues a commit callback for the end of the current transaction.
func (r *Reconciler) deferCommit(fn func() error) {
	r.batch.ready = append(r.batch.ready, fn)
}

// transact runs fn inside a transaction. Transactions nest; only the
// outermost one flushes. When fn fails, the commit callbacks it queued are
// discarded. Errors leaving the outermost transaction are also reported to
// the handler.
func (r *Reconciler) transact(fn func() error) error {
	b := &r.batch
	mark := len(b.ready)
	b.depth++
	defer func() { b.depth-- }()

	if err := fn(); err != nil {
		if b.depth == 1 {
			b.abandon()
			r.report(err)
		} else {
			clear(b.ready[mark:])
			b.ready = b.ready[:mark]
		}
		return err
	}
	if b.depth > 1 {
		return nil
	}
	if err := r.flush(); err != nil {
		b.abandon()
		r.report(err)
		return err
	}
	return nil
}

// flush runs commit callbacks and then one update pass per dirty instance,
// in first-dirtied order with ancestors ahead of their dirty descendants,
// until neither produces more work.
func (r *Reconciler) flush() error {
	b := &r.batch
	for round := 0; ; {
		for len(b.ready) > 0 {
			fn := b.ready[0]
			b.ready[0] = nil
			b.ready = b.ready[1:]
			if err := fn(); err != nil {
				return err
			}
		}
		if len(b.dirty) == 0 {
			b.ready = nil
			return nil
		}
		if round >= r.maxCascade {
			return &errors.ReconcileError{
				Op:        "core.flush",
				Kind:      errors.KindLifecycle,
				Err:       errors.ErrCascadeLimit,
				Component: b.dirty[0].Name(),
				Timestamp: time.Now(),
			}
		}
		round++

		dirty := b.dirty
		b.dirty = nil
		clear(b.dirtySet)
		r.logger.Debug("flush", zap.Int("round", round), zap.Int("dirty", len(dirty)))

		for _, inst := range r.passOrder(dirty) {
			if err := r.updateIfNecessary(inst); err != nil {
				return err
			}
		}
	}
}

// passOrder orders one round of dirty instances. Unrelated instances keep
// their first-dirtied order; an instance with a dirty composite ancestor is
// held back until right after that ancestor, whose pass normally drains it.
func (r *Reconciler) passOrder(dirty []*Instance) []*Instance {
	inRound := make(map[*Instance]bool, len(dirty))
	for _, inst := range dirty {
		inRound[inst] = true
	}

	held := make(map[*Instance][]*Instance)
	var tops []*Instance
	for _, inst := range dirty {
		if a := dirtyAncestor(inst, inRound); a != nil {
			held[a] = append(held[a], inst)
			continue
		}
		tops = append(tops, inst)
	}
	if len(held) == 0 {
		return dirty
	}

	order := make([]*Instance, 0, len(dirty))
	var visit func(inst *Instance)
	visit = func(inst *Instance) {
		order = append(order, inst)
		for _, child := range held[inst] {
			visit(child)
		}
	}
	for _, inst := range tops {
		visit(inst)
	}
	return order
}

// dirtyAncestor returns the nearest composite ancestor of inst in set.
func dirtyAncestor(inst *Instance, set map[*Instance]bool) *Instance {
	for n := inst.parent; n != nil; n = n.links().parent {
		if a, ok := n.(*Instance); ok && set[a] {
			return a
		}
	}
	return nil
}

func (b *batch) abandon() {
	b.ready = nil
	b.dirty = nil
	clear(b.dirtySet)
}

// BatchedUpdates runs fn inside a transaction. Updates requested by fn are
// queued and flushed once fn returns, one pass per dirty instance. Calls
// nest; only the outermost one flushes.
//
// A panic in fn is returned as a *errors.PanicError.
func (r *Reconciler) BatchedUpdates(fn func()) error {
	return r.transact(func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				pe := &errors.PanicError{
					Op:        "core.BatchedUpdates",
					Value:     v,
					Timestamp: time.Now(),
				}
				if DebugMode {
					pe.StackTrace = errors.CaptureStack()
				}
				err = pe
			}
		}()
		fn()
		return nil
	})
}
