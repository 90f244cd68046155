package cmd

import (
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"

	"github.com/go-drift/composite/cmd/composite/internal/config"
	"github.com/go-drift/composite/pkg/core"
	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/errors"
	"github.com/go-drift/composite/pkg/host/memory"
)

func init() {
	RegisterCommand(&Command{
		Name:  "demo",
		Short: "Run a scripted reconciliation",
		Long: `Mount a small todo list into an in-memory document and drive it
through batched additions, a state change in one item, a keyed reorder,
a removal, and an unmount. The document is printed after every step.

Flags:
  --snapshot   Print a YAML snapshot of the document instead of markup`,
		Usage: "composite demo [--snapshot]",
		Run:   runDemo,
	})
}

func runDemo(args []string) error {
	snapshot := false
	for _, arg := range args {
		switch arg {
		case "--snapshot":
			snapshot = true
		default:
			return fmt.Errorf("unknown flag %q\n\nUsage: composite demo [--snapshot]", arg)
		}
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	logger, err := errors.NewLogger(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return demo(stdout, cfg, logger, snapshot)
}

// todoList renders its "items" state as keyed todoItem children.
type todoList struct {
	core.Base
}

func (l *todoList) InitialState() core.State {
	return map[string]any{"items": []string{}}
}

func (l *todoList) items() []string {
	items, _ := l.Get("items").([]string)
	return items
}

func (l *todoList) Render(ctx *core.RenderContext) *element.Element {
	item := l.Props().Get("item").(*core.Class)
	var children []*element.Element
	for _, label := range l.items() {
		children = append(children, ctx.Element(item, element.Props{"label": label}).
			WithKey(label).
			WithRef("item:"+label))
	}
	return ctx.Element(element.Tag("ul"), element.Props{"class": "todos"}, children...)
}

func (l *todoList) add(label string) error {
	return l.SetState(core.Updater(func(prev core.State, _ element.Props) core.State {
		items := prev.(map[string]any)["items"].([]string)
		return map[string]any{"items": append(slices.Clone(items), label)}
	}), nil)
}

// todoItem shows a label and its own done flag.
type todoItem struct {
	core.Base
	mounts *int
}

func (t *todoItem) InitialState() core.State {
	return map[string]any{"done": false}
}

func (t *todoItem) WillMount() {
	*t.mounts++
}

func (t *todoItem) Render(ctx *core.RenderContext) *element.Element {
	props := element.Props{}
	if t.Get("done") == true {
		props["done"] = true
	}
	return ctx.Element(element.Tag("li"), props, element.Text(t.Props().GetString("label")))
}

// demo runs the scripted reconciliation and writes each step to w.
func demo(w io.Writer, cfg *config.Resolved, logger *zap.Logger, snapshot bool) error {
	core.SetDebugMode(cfg.Verbose)
	defer core.SetDebugMode(true)

	doc := memory.NewDocument()
	container := doc.NewContainer(cfg.AppName)
	r := core.New(doc,
		core.WithHandler(&errors.LogHandler{Verbose: cfg.Verbose, Logger: logger}),
		core.WithLogger(logger),
		core.WithMaxCascade(cfg.MaxCascade),
	)

	mounts := 0
	itemClass := &core.Class{
		Name: "TodoItem",
		New: func(props element.Props) core.Component {
			item := &todoItem{mounts: &mounts}
			item.Init(props)
			return item
		},
	}
	listClass := &core.Class{
		Name: "TodoList",
		New:  func(element.Props) core.Component { return &todoList{} },
	}

	show := func(step string) error {
		fmt.Fprintf(w, "# %s\n", step)
		if snapshot {
			data, err := memory.CaptureSnapshot(container).Marshal()
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}
		_, err := fmt.Fprintln(w, doc.Markup(container))
		return err
	}

	v, err := r.Mount(element.New(listClass, element.Props{"item": itemClass}), container)
	if err != nil {
		return err
	}
	list := v.(*todoList)
	if err := show("mount"); err != nil {
		return err
	}

	err = r.BatchedUpdates(func() {
		for _, label := range []string{"design", "build", "test"} {
			list.add(label)
		}
	})
	if err != nil {
		return err
	}
	if err := show("add three items in one batch"); err != nil {
		return err
	}

	build, ok := list.Ref("item:build").(*todoItem)
	if !ok {
		return fmt.Errorf("demo: item ref %q is not bound", "item:build")
	}
	if err := build.SetState(map[string]any{"done": true}, nil); err != nil {
		return err
	}
	if err := show("mark build done"); err != nil {
		return err
	}

	reversed := slices.Clone(list.items())
	slices.Reverse(reversed)
	if err := list.SetState(map[string]any{"items": reversed}, nil); err != nil {
		return err
	}
	if err := show("reverse"); err != nil {
		return err
	}

	remaining := slices.DeleteFunc(slices.Clone(list.items()), func(s string) bool { return s == "design" })
	if err := list.SetState(map[string]any{"items": remaining}, nil); err != nil {
		return err
	}
	if err := show("remove design"); err != nil {
		return err
	}

	if _, err := r.Unmount(container); err != nil {
		return err
	}
	if err := show("unmount"); err != nil {
		return err
	}

	fmt.Fprintf(w, "items mounted: %d\n", mounts)
	return nil
}
