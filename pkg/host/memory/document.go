// Package memory provides an in-memory rendering target.
//
// A Document materializes host elements as plain Node values, records every
// mutation the reconciler asks for, and renders the result as markup or as a
// YAML snapshot. It is used by tests and by the composite command.
//
//	doc := memory.NewDocument()
//	root := doc.NewContainer("root")
//	r := core.New(doc)
//	r.Mount(element.New(element.Tag("p"), nil, element.Text("hi")), root)
//	doc.Markup(root) // "<p>hi</p>"
package memory

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-drift/composite/pkg/element"
	"github.com/go-drift/composite/pkg/host"
)

// Node is one materialized host node.
type Node struct {
	// ID is unique within the document and increases in creation order.
	ID int
	// Tag is the host tag. Containers use the tag "#container".
	Tag element.Tag
	// Props is the last set of properties applied to the node.
	Props element.Props
	// Children are the arranged child nodes.
	Children []*Node
	// Parent is the node this one is arranged under, or nil.
	Parent *Node
	// Destroyed is set once DestroyHost released the node.
	Destroyed bool
}

// ContainerTag is the tag of container nodes.
const ContainerTag element.Tag = "#container"

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.Tag == element.TextTag {
		return n.Props.GetString(element.TextProp)
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.Tag, n.ID)
}

// OpKind names a target operation.
type OpKind string

const (
	OpMount   OpKind = "mount"
	OpPatch   OpKind = "patch"
	OpDestroy OpKind = "destroy"
	OpArrange OpKind = "arrange"
)

// Op is one recorded target operation.
type Op struct {
	Kind OpKind
	Node *Node
	// Children holds the arranged children for OpArrange.
	Children []*Node
}

func (o Op) String() string {
	if o.Kind != OpArrange {
		return fmt.Sprintf("%s %s", o.Kind, o.Node)
	}
	names := make([]string, len(o.Children))
	for i, child := range o.Children {
		names[i] = child.String()
	}
	return fmt.Sprintf("%s %s [%s]", o.Kind, o.Node, strings.Join(names, " "))
}

type failure struct {
	kind OpKind
	tag  element.Tag
	err  error
}

// Document is an in-memory host.Target. It is not safe for concurrent use.
type Document struct {
	nextID   int
	ops      []Op
	failures []failure
}

var _ host.Target = (*Document)(nil)

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// NewContainer creates a container node to mount trees into.
func (d *Document) NewContainer(name string) *Node {
	return d.newNode(ContainerTag, element.Props{"name": name})
}

func (d *Document) newNode(tag element.Tag, props element.Props) *Node {
	d.nextID++
	return &Node{ID: d.nextID, Tag: tag, Props: props.Clone()}
}

// FailNext makes the next operation of the given kind on a node with the
// given tag fail with err. An empty tag matches any node.
func (d *Document) FailNext(kind OpKind, tag element.Tag, err error) {
	d.failures = append(d.failures, failure{kind: kind, tag: tag, err: err})
}

func (d *Document) injected(kind OpKind, tag element.Tag) error {
	for i, f := range d.failures {
		if f.kind == kind && (f.tag == "" || f.tag == tag) {
			d.failures = slices.Delete(d.failures, i, i+1)
			return f.err
		}
	}
	return nil
}

// Ops returns the recorded operations.
func (d *Document) Ops() []Op {
	return d.ops
}

// OpCount returns how many operations of kind were recorded.
func (d *Document) OpCount(kind OpKind) int {
	n := 0
	for _, op := range d.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// ResetOps clears the operation log.
func (d *Document) ResetOps() {
	d.ops = nil
}

// MountHost implements host.Target.
func (d *Document) MountHost(el *element.Element) (host.Handle, error) {
	tag, ok := el.Type.(element.Tag)
	if !ok {
		return nil, fmt.Errorf("memory: element type %s is not a host tag", el.TypeName())
	}
	if err := d.injected(OpMount, tag); err != nil {
		return nil, err
	}
	n := d.newNode(tag, el.Props)
	d.ops = append(d.ops, Op{Kind: OpMount, Node: n})
	return n, nil
}

// PatchHost implements host.Target.
func (d *Document) PatchHost(h host.Handle, prev, next element.Props) error {
	n, err := d.node(h)
	if err != nil {
		return err
	}
	if err := d.injected(OpPatch, n.Tag); err != nil {
		return err
	}
	n.Props = next.Clone()
	d.ops = append(d.ops, Op{Kind: OpPatch, Node: n})
	return nil
}

// DestroyHost implements host.Target.
func (d *Document) DestroyHost(h host.Handle) error {
	n, err := d.node(h)
	if err != nil {
		return err
	}
	if err := d.injected(OpDestroy, n.Tag); err != nil {
		return err
	}
	detach(n)
	n.Destroyed = true
	d.ops = append(d.ops, Op{Kind: OpDestroy, Node: n})
	return nil
}

// ArrangeHost implements host.Target.
func (d *Document) ArrangeHost(parent host.Handle, children []host.Handle) error {
	p, err := d.node(parent)
	if err != nil {
		return err
	}
	if err := d.injected(OpArrange, p.Tag); err != nil {
		return err
	}

	next := make([]*Node, 0, len(children))
	for _, h := range children {
		child, err := d.node(h)
		if err != nil {
			return err
		}
		next = append(next, child)
	}

	for _, old := range p.Children {
		if !slices.Contains(next, old) {
			old.Parent = nil
		}
	}
	for _, child := range next {
		if child.Parent != nil && child.Parent != p {
			detach(child)
		}
		child.Parent = p
	}
	p.Children = next
	d.ops = append(d.ops, Op{Kind: OpArrange, Node: p, Children: slices.Clone(next)})
	return nil
}

func (d *Document) node(h host.Handle) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("memory: unknown handle %v", h)
	}
	if n.Destroyed {
		return nil, fmt.Errorf("memory: node %s is destroyed", n)
	}
	return n, nil
}

func detach(n *Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.Children = slices.DeleteFunc(n.Parent.Children, func(c *Node) bool { return c == n })
	n.Parent = nil
}

// Markup renders the children of container as HTML-like markup.
func (d *Document) Markup(container *Node) string {
	var sb strings.Builder
	for _, child := range container.Children {
		writeMarkup(&sb, child)
	}
	return sb.String()
}

func writeMarkup(sb *strings.Builder, n *Node) {
	if n.Tag == element.TextTag {
		sb.WriteString(n.Props.GetString(element.TextProp))
		return
	}
	sb.WriteByte('<')
	sb.WriteString(string(n.Tag))
	keys := make([]string, 0, len(n.Props))
	for key := range n.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, ok := scalar(n.Props[key])
		if !ok {
			continue
		}
		fmt.Fprintf(sb, " %s=%q", key, fmt.Sprint(value))
	}
	sb.WriteByte('>')
	for _, child := range n.Children {
		writeMarkup(sb, child)
	}
	sb.WriteString("</")
	sb.WriteString(string(n.Tag))
	sb.WriteByte('>')
}

// scalar reports whether v is a printable property value.
func scalar(v any) (any, bool) {
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, true
	default:
		return nil, false
	}
}
