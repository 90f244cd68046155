package core_test

import (
	"fmt"
	"strconv"

	"github.com/go-drift/composite/pkg/core"
	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/host/memory"
)

type counter struct {
	core.Base
}

func (c *counter) InitialState() core.State {
	return map[string]any{"count": 0}
}

func (c *counter) Render(ctx *core.RenderContext) *element.Element {
	label := c.Props().GetString("label") + ": " + strconv.Itoa(c.Get("count").(int))
	return ctx.Element(element.Tag("span"), nil, element.Text(label))
}

var counterClass = &core.Class{
	Name:         "Counter",
	DefaultProps: element.Props{"label": "count"},
	New:          func(element.Props) core.Component { return &counter{} },
}

// This example mounts a stateful component and updates its state.
func ExampleReconciler_Mount() {
	doc := memory.NewDocument()
	root := doc.NewContainer("root")
	r := core.New(doc)

	v, err := r.Mount(element.New(counterClass, nil), root)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(doc.Markup(root))

	c := v.(*counter)
	c.SetState(map[string]any{"count": 1}, func() {
		fmt.Println("applied")
	})
	fmt.Println(doc.Markup(root))

	// Output:
	// <span>count: 0</span>
	// applied
	// <span>count: 1</span>
}

// This example groups several state updates into one update pass.
func ExampleReconciler_BatchedUpdates() {
	doc := memory.NewDocument()
	root := doc.NewContainer("root")
	r := core.New(doc)

	v, _ := r.Mount(element.New(counterClass, element.Props{"label": "clicks"}), root)
	c := v.(*counter)

	r.BatchedUpdates(func() {
		for range 3 {
			c.SetState(core.Updater(func(prev core.State, _ element.Props) core.State {
				return map[string]any{"count": prev.(map[string]any)["count"].(int) + 1}
			}), nil)
		}
		fmt.Println("inside:", doc.Markup(root))
	})
	fmt.Println("after:", doc.Markup(root))

	// Output:
	// inside: <span>clicks: 0</span>
	// after: <span>clicks: 3</span>
}

// This example passes a value to a deep descendant through context.
func ExampleClass_contextTypes() {
	theme := &core.Class{
		Name: "Theme",
		New: func(element.Props) core.Component {
			return &themeProvider{}
		},
	}
	label := core.Stateless("Label", func(ctx *core.RenderContext, props element.Props) *element.Element {
		color, _ := ctx.Context().Value("color").(string)
		return ctx.Element(element.Tag("p"), element.Props{"color": color}, element.Text(props.GetString("text")))
	}, "color")

	doc := memory.NewDocument()
	root := doc.NewContainer("root")
	r := core.New(doc)

	r.Mount(element.New(theme, element.Props{"color": "teal"},
		element.New(element.Tag("section"), nil,
			element.New(label, element.Props{"text": "hello"}),
		),
	), root)
	fmt.Println(doc.Markup(root))

	// Output:
	// <div><section><p color="teal">hello</p></section></div>
}

type themeProvider struct {
	core.Base
}

func (t *themeProvider) ChildContext() map[string]any {
	return map[string]any{"color": t.Props().GetString("color")}
}

func (t *themeProvider) Render(ctx *core.RenderContext) *element.Element {
	return ctx.Element(element.Tag("div"), nil, t.Children()...)
}
