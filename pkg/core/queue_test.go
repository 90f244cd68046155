package core

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/errors"
)

func mountCounter(t *testing.T, h *harness) *renderCounter {
	t.Helper()
	return h.mount(element.New(classOf("Counter", func() Component { return &renderCounter{} }), nil)).(*renderCounter)
}

func TestSetStateOutsideBatchRendersPerCall(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	for i := 1; i <= 3; i++ {
		if err := c.SetState(map[string]any{"value": i}, nil); err != nil {
			t.Fatal(err)
		}
		if got := c.Get("value"); got != i {
			t.Fatalf("value after call %d = %v", i, got)
		}
	}
	if c.renders != 4 {
		t.Errorf("renders = %d, want 4", c.renders)
	}
}

func TestBatchedUpdatesRenderOnce(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	var order []int
	err := h.r.BatchedUpdates(func() {
		for i := 1; i <= 3; i++ {
			c.SetState(map[string]any{"value": i, "step": i}, func() { order = append(order, i) })
		}
		if c.renders != 1 || c.Get("value") != 0 {
			t.Error("updates must not apply before the batch closes")
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if c.renders != 2 {
		t.Errorf("renders = %d, want 2", c.renders)
	}
	if diff := cmp.Diff(map[string]any{"value": 3, "step": 3}, c.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, order); diff != "" {
		t.Errorf("callback order mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedBatchesFlushAtOutermost(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	err := h.r.BatchedUpdates(func() {
		h.r.BatchedUpdates(func() {
			c.SetState(map[string]any{"value": 1}, nil)
		})
		if c.renders != 1 {
			t.Error("inner batch should not flush")
		}
		c.SetState(map[string]any{"value": 2}, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.renders != 2 || c.Get("value") != 2 {
		t.Errorf("renders = %d, value = %v", c.renders, c.Get("value"))
	}
}

type named struct {
	renderCounter
	order *[]string
}

func (c *named) DidUpdate(element.Props, State, *Context) {
	*c.order = append(*c.order, c.Props().GetString("name"))
}

func TestFlushRunsInFirstDirtiedOrder(t *testing.T) {
	h := newHarness(t)
	var order []string
	refs := map[string]*named{}
	cls := &Class{Name: "Named", New: func(props element.Props) Component {
		c := &named{order: &order}
		refs[props.GetString("name")] = c
		return c
	}}
	h.mount(element.New(div, nil,
		element.New(cls, element.Props{"name": "a"}),
		element.New(cls, element.Props{"name": "b"}),
	))

	err := h.r.BatchedUpdates(func() {
		refs["b"].SetState(map[string]any{"value": 1}, nil)
		refs["a"].SetState(map[string]any{"value": 1}, nil)
		refs["b"].SetState(map[string]any{"value": 2}, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, order); diff != "" {
		t.Errorf("update order mismatch (-want +got):\n%s", diff)
	}
	if refs["b"].renders != 2 {
		t.Errorf("b renders = %d, want 2", refs["b"].renders)
	}
}

type parentOfCounter struct {
	Base
	child *Class
}

func (p *parentOfCounter) Render(ctx *RenderContext) *element.Element {
	return ctx.Element(p.child, element.Props{"v": p.Get("v")}).WithRef("child")
}

func TestParentPassDrainsDirtyChild(t *testing.T) {
	h := newHarness(t)
	counterClass := classOf("Counter", func() Component { return &renderCounter{} })
	p := h.mount(element.New(classOf("Parent", func() Component { return &parentOfCounter{child: counterClass} }), nil)).(*parentOfCounter)
	child := p.Ref("child").(*renderCounter)

	err := h.r.BatchedUpdates(func() {
		p.SetState(map[string]any{"v": 1}, nil)
		child.SetState(map[string]any{"value": 1}, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if child.renders != 2 {
		t.Errorf("child renders = %d, want 2", child.renders)
	}
	if child.Get("value") != 1 || child.Props().Get("v") != 1 {
		t.Errorf("child state %v props %v", child.State(), child.Props())
	}
}

func TestDirtyChildWaitsForDirtyParent(t *testing.T) {
	h := newHarness(t)
	counterClass := classOf("Counter", func() Component { return &renderCounter{} })
	p := h.mount(element.New(classOf("Parent", func() Component { return &parentOfCounter{child: counterClass} }), nil)).(*parentOfCounter)
	child := p.Ref("child").(*renderCounter)

	err := h.r.BatchedUpdates(func() {
		child.SetState(map[string]any{"value": 1}, nil)
		p.SetState(map[string]any{"v": 1}, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if child.renders != 2 {
		t.Errorf("child renders = %d, want 2", child.renders)
	}
	if child.Get("value") != 1 || child.Props().Get("v") != 1 {
		t.Errorf("child state %v props %v", child.State(), child.Props())
	}
}

type skippingParent struct {
	parentOfCounter
}

func (p *skippingParent) ShouldUpdate(element.Props, State, *Context) Decision { return Skip }

func TestDirtyChildRunsAfterSkippedParent(t *testing.T) {
	h := newHarness(t)
	counterClass := classOf("Counter", func() Component { return &renderCounter{} })
	p := h.mount(element.New(classOf("Parent", func() Component {
		return &skippingParent{parentOfCounter{child: counterClass}}
	}), nil)).(*skippingParent)
	child := p.Ref("child").(*renderCounter)

	err := h.r.BatchedUpdates(func() {
		child.SetState(map[string]any{"value": 1}, nil)
		p.SetState(map[string]any{"v": 1}, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if child.renders != 2 || child.Get("value") != 1 {
		t.Errorf("child renders = %d value = %v, want its own pass", child.renders, child.Get("value"))
	}
	if p.Get("v") != 1 {
		t.Errorf("parent state = %v", p.State())
	}
}

type renderSetter struct {
	renderCounter
}

func (c *renderSetter) Render(ctx *RenderContext) *element.Element {
	if c.Get("value") == 0 {
		c.SetState(map[string]any{"value": 1}, nil)
	}
	return c.renderCounter.Render(ctx)
}

func TestSetStateInRenderRunsSecondPass(t *testing.T) {
	h := newHarness(t)
	cls := classOf("RenderSetter", func() Component { return &renderSetter{} })

	c := h.mount(element.New(cls, nil)).(*renderSetter)
	if c.renders != 2 {
		t.Errorf("renders = %d, want 2", c.renders)
	}
	if c.Get("value") != 1 {
		t.Errorf("value = %v", c.Get("value"))
	}
	if diff := cmp.Diff([]errors.Code{errors.CodeUpdateDuringRender}, h.rec.codes()); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}

	if again := h.update(element.New(cls, element.Props{"prop": 123})); again != c {
		t.Error("update should keep the instance")
	}
}

type contextSetter struct {
	renderCounter
}

func (c *contextSetter) ChildContext() map[string]any {
	if c.Get("value") == 0 {
		c.SetState(map[string]any{"value": 1}, nil)
	}
	return nil
}

func TestSetStateInChildContextRunsSecondPass(t *testing.T) {
	h := newHarness(t)
	c := h.mount(element.New(classOf("ContextSetter", func() Component { return &contextSetter{} }), nil)).(*contextSetter)

	if c.renders != 2 {
		t.Errorf("renders = %d, want 2", c.renders)
	}
	if diff := cmp.Diff([]errors.Code{errors.CodeUpdateInChildContext}, h.rec.codes()); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceStateDropsQueuedRequests(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	err := h.r.BatchedUpdates(func() {
		c.SetState(map[string]any{"x": 1}, nil)
		c.ReplaceState(map[string]any{"y": 2}, nil)
		c.SetState(map[string]any{"z": 3}, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"y": 2, "z": 3}, c.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

type notImmutable struct {
	Str string `state:"str"`
}

func (n *notImmutable) AmIImmutable() bool { return true }

type moo struct {
	Base
}

func (m *moo) InitialState() State { return &notImmutable{Str: "first"} }

func (m *moo) Render(ctx *RenderContext) *element.Element { return ctx.Element(span, nil) }

func TestReplaceStateKeepsIdentity(t *testing.T) {
	h := newHarness(t)
	m := h.mount(element.New(classOf("Moo", func() Component { return &moo{} }), nil)).(*moo)

	second := &notImmutable{Str: "second"}
	m.ReplaceState(second, nil)
	if m.State() != second {
		t.Fatalf("state = %v, want the replaced value", m.State())
	}

	m.SetState(map[string]any{"str": "third"}, nil)
	if diff := cmp.Diff(map[string]any{"str": "third"}, m.State()); diff != "" {
		t.Errorf("merge onto a struct state should produce a map (-want +got):\n%s", diff)
	}

	fifth := &notImmutable{Str: "fifth"}
	h.r.BatchedUpdates(func() {
		m.SetState(map[string]any{"str": "fourth"}, nil)
		m.ReplaceState(fifth, nil)
	})
	if m.State() != fifth {
		t.Errorf("state = %v, want fifth", m.State())
	}

	h.r.BatchedUpdates(func() {
		m.ReplaceState(&notImmutable{Str: "sixth"}, nil)
		m.SetState(map[string]any{"str": "seventh"}, nil)
	})
	if diff := cmp.Diff(map[string]any{"str": "seventh"}, m.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdaterSeesAccumulatedState(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	increment := Updater(func(prev State, _ element.Props) State {
		return map[string]any{"value": prev.(map[string]any)["value"].(int) + 1}
	})
	err := h.r.BatchedUpdates(func() {
		c.SetState(increment, nil)
		c.SetState(increment, nil)
		c.SetState(func(prev State, _ element.Props) State {
			return map[string]any{"value": prev.(map[string]any)["value"].(int) * 10}
		}, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Get("value"); got != 20 {
		t.Errorf("value = %v, want 20", got)
	}
	if c.renders != 2 {
		t.Errorf("renders = %d, want 2", c.renders)
	}
}

func TestUpdaterPanicIsReturned(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	err := c.SetState(Updater(func(State, element.Props) State { panic("bad updater") }), nil)
	var le *errors.LifecycleError
	if !stderrors.As(err, &le) || le.Hook != "Updater" {
		t.Fatalf("SetState() error = %v", err)
	}
}

type counterState struct {
	Count int
	Label string
}

func (s *counterState) MergeState(partial map[string]any) State {
	out := *s
	if v, ok := partial["count"].(int); ok {
		out.Count = v
	}
	if v, ok := partial["label"].(string); ok {
		out.Label = v
	}
	return &out
}

type merging struct {
	Base
}

func (m *merging) InitialState() State { return &counterState{Label: "start"} }

func (m *merging) Render(ctx *RenderContext) *element.Element { return nil }

func TestMergerKeepsStateType(t *testing.T) {
	h := newHarness(t)
	m := h.mount(element.New(classOf("Merging", func() Component { return &merging{} }), nil)).(*merging)

	m.SetState(map[string]any{"count": 4}, nil)
	got, ok := m.State().(*counterState)
	if !ok {
		t.Fatalf("state type = %T", m.State())
	}
	if diff := cmp.Diff(&counterState{Count: 4, Label: "start"}, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestStructPartialUsesStateTags(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	type partial struct {
		Value  int    `state:"value"`
		Hidden string `state:"-"`
		Extra  bool
		secret int
	}
	c.SetState(partial{Value: 7, Hidden: "h", Extra: true, secret: 1}, nil)

	if diff := cmp.Diff(map[string]any{"value": 7, "Extra": true}, c.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeState(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		partial any
		want    State
	}{
		{"nil partial keeps state", map[string]any{"a": 1}, nil, map[string]any{"a": 1}},
		{"map merge", map[string]any{"a": 1, "b": 2}, map[string]any{"b": 3}, map[string]any{"a": 1, "b": 3}},
		{"onto nil", nil, map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"props partial", map[string]any{"a": 1}, element.Props{"b": 2}, map[string]any{"a": 1, "b": 2}},
		{"typed map partial", map[string]any{}, map[string]int{"n": 1}, map[string]any{"n": 1}},
		{"scalar replaces", map[string]any{"a": 1}, 42, 42},
		{"struct pointer state", &notImmutable{Str: "x"}, map[string]any{"other": 1}, map[string]any{"str": "x", "other": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, mergeState(tt.state, tt.partial)); diff != "" {
				t.Errorf("mergeState() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeStateDoesNotMutate(t *testing.T) {
	state := map[string]any{"a": 1}
	partial := map[string]any{"b": 2}
	mergeState(state, partial)
	if len(state) != 1 || len(partial) != 1 {
		t.Errorf("inputs were modified: %v %v", state, partial)
	}
}

type cascading struct {
	renderCounter
}

func (c *cascading) DidUpdate(element.Props, State, *Context) {
	c.SetState(map[string]any{"value": c.Get("value").(int) + 1}, nil)
}

func TestCascadeLimit(t *testing.T) {
	h := newHarness(t, WithMaxCascade(5))
	c := h.mount(element.New(classOf("Cascading", func() Component { return &cascading{} }), nil)).(*cascading)

	err := c.SetState(map[string]any{"value": 1}, nil)
	if !stderrors.Is(err, errors.ErrCascadeLimit) {
		t.Fatalf("SetState() error = %v, want cascade limit", err)
	}
	var re *errors.ReconcileError
	if stderrors.As(err, &re) && re.Component != "Cascading" {
		t.Errorf("Component = %q", re.Component)
	}
	if c.renders != 6 {
		t.Errorf("renders = %d, want 6", c.renders)
	}

	// The batch is reset and later updates still work.
	if err := h.r.BatchedUpdates(func() {}); err != nil {
		t.Errorf("empty batch error = %v", err)
	}
}

func TestBatchedUpdatesRecoversPanic(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	err := h.r.BatchedUpdates(func() {
		c.SetState(map[string]any{"value": 1}, nil)
		panic("batch failed")
	})
	var pe *errors.PanicError
	if !stderrors.As(err, &pe) || pe.Op != "core.BatchedUpdates" || pe.Value != "batch failed" {
		t.Fatalf("BatchedUpdates() error = %v", err)
	}
	if c.renders != 1 {
		t.Errorf("a failed batch should not flush, renders = %d", c.renders)
	}
	if len(h.rec.panics) != 1 || h.rec.panics[0] != pe {
		t.Errorf("handler panics = %v", h.rec.panics)
	}
}

func TestEnqueueThroughReconciler(t *testing.T) {
	h := newHarness(t)
	c := mountCounter(t, h)

	if err := h.r.EnqueueSetState(c, map[string]any{"value": 9}, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.r.EnqueueForceUpdate(c, nil); err != nil {
		t.Fatal(err)
	}
	if c.Get("value") != 9 || c.renders != 3 {
		t.Errorf("value = %v, renders = %d", c.Get("value"), c.renders)
	}

	stranger := &renderCounter{}
	h.r.EnqueueSetState(stranger, map[string]any{"value": 1}, nil)
	if diff := cmp.Diff([]errors.Code{errors.CodeNoopUpdate}, h.rec.codes()); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}
