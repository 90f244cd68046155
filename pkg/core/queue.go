package core

import (
	"maps"
	"reflect"

	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/errors"
)

// UpdateKind tags a queued state request.
type UpdateKind int

const (
	// UpdateMerge shallow-merges a partial state onto the accumulated state.
	UpdateMerge UpdateKind = iota
	// UpdateReplace installs a state value wholesale.
	UpdateReplace
)

func (k UpdateKind) String() string {
	if k == UpdateReplace {
		return "replace"
	}
	return "merge"
}

// Update is one queued state request.
type Update struct {
	Kind  UpdateKind
	Value any
}

// Updater computes a partial state from the state accumulated so far in the
// queue and the props of the pass. A plain func with the same signature is
// accepted too.
type Updater func(prev State, props element.Props) State

// Merger is implemented by state values that merge partial updates into
// themselves. Without it, merging onto a non-map state produces a
// map[string]any.
type Merger interface {
	MergeState(partial map[string]any) State
}

// enqueue records a state request for inst and schedules an update pass.
// update is nil for forced updates.
func (r *Reconciler) enqueue(inst *Instance, method string, update *Update, force bool, callback func()) error {
	switch inst.phase {
	case PhaseUnmounting:
		return nil
	case PhaseUnmounted, PhaseDestroyed:
		r.warn(errors.NoopUpdateWarning(method, inst.Name()))
		return nil
	}
	if r.rendering != nil {
		r.warn(errors.UpdateDuringRenderWarning(method, inst.Name()))
	}
	if r.childContextOf != nil {
		r.warn(errors.UpdateInChildContextWarning(method, inst.Name()))
	}

	if update != nil {
		if update.Kind == UpdateReplace {
			inst.queue = append(inst.queue[:0], *update)
		} else {
			inst.queue = append(inst.queue, *update)
		}
	}
	if force {
		inst.force = true
	}
	if callback != nil {
		inst.callbacks = append(inst.callbacks, callback)
	}
	return r.schedule(inst)
}

// EnqueueSetState is SetState addressed through the reconciler.
func (r *Reconciler) EnqueueSetState(c Component, partial any, callback func()) error {
	inst := r.InstanceOf(c)
	if inst == nil {
		r.warn(errors.NoopUpdateWarning("SetState", "Component"))
		return nil
	}
	return r.enqueue(inst, "SetState", &Update{Kind: UpdateMerge, Value: partial}, false, callback)
}

// EnqueueForceUpdate is ForceUpdate addressed through the reconciler.
func (r *Reconciler) EnqueueForceUpdate(c Component, callback func()) error {
	inst := r.InstanceOf(c)
	if inst == nil {
		r.warn(errors.NoopUpdateWarning("ForceUpdate", "Component"))
		return nil
	}
	return r.enqueue(inst, "ForceUpdate", nil, true, callback)
}

// EnqueueReplaceState is ReplaceState addressed through the reconciler.
//
// Deprecated: replacement is kept for legacy callers. Use EnqueueSetState.
func (r *Reconciler) EnqueueReplaceState(c Component, state State, callback func()) error {
	inst := r.InstanceOf(c)
	if inst == nil {
		r.warn(errors.NoopUpdateWarning("ReplaceState", "Component"))
		return nil
	}
	return r.enqueue(inst, "ReplaceState", &Update{Kind: UpdateReplace, Value: state}, false, callback)
}

// drain applies the queued requests of inst to its current state, in order,
// and empties the queue.
func (r *Reconciler) drain(inst *Instance, props element.Props) (State, error) {
	state := inst.state
	queue := inst.queue
	inst.queue = nil

	for _, u := range queue {
		if u.Kind == UpdateReplace {
			state = u.Value
			continue
		}
		partial := u.Value
		if fn, ok := asUpdater(partial); ok {
			prev := state
			if err := r.invoke(inst, "Updater", func() {
				partial = fn(prev, props)
			}); err != nil {
				return state, err
			}
		}
		state = mergeState(state, partial)
	}
	return state, nil
}

func asUpdater(v any) (Updater, bool) {
	switch fn := v.(type) {
	case Updater:
		return fn, fn != nil
	case func(State, element.Props) State:
		return fn, fn != nil
	default:
		return nil, false
	}
}

// mergeState applies one partial to state. Map-shaped partials are merged
// onto a copy; any other non-nil value replaces the state.
func mergeState(state State, partial any) State {
	if partial == nil {
		return state
	}
	fields, ok := toFields(partial)
	if !ok {
		return partial
	}
	if m, ok := state.(Merger); ok {
		return m.MergeState(fields)
	}
	current, _ := toFields(state)
	out := make(map[string]any, len(current)+len(fields))
	maps.Copy(out, current)
	maps.Copy(out, fields)
	return out
}

// toFields views v as a string-keyed mapping. Structs contribute their
// exported fields, named by a `state` tag when present.
func toFields(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return t, true
	case element.Props:
		return t, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		rt := rv.Type()
		out := make(map[string]any, rt.NumField())
		for i := range rt.NumField() {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, ok := field.Tag.Lookup("state"); ok {
				if tag == "-" {
					continue
				}
				if tag != "" {
					name = tag
				}
			}
			out[name] = rv.Field(i).Interface()
		}
		return out, true
	default:
		return nil, false
	}
}
