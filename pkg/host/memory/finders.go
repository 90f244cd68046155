package memory

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-drift/composite/pkg/element"
)

// Finder locates nodes below a root.
type Finder interface {
	// Evaluate returns all matching nodes under root (depth-first pre-order).
	Evaluate(root *Node) []*Node
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	nodes  []*Node
	finder Finder
}

// Find evaluates f below root.
func Find(root *Node, f Finder) FinderResult {
	return FinderResult{nodes: f.Evaluate(root), finder: f}
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *Node {
	if len(r.nodes) == 0 {
		panic(fmt.Sprintf("Finder found no nodes: %s", r.description()))
	}
	return r.nodes[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *Node {
	if len(r.nodes) == 0 {
		return nil
	}
	return r.nodes[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) *Node {
	if index < 0 || index >= len(r.nodes) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.nodes), r.description()))
	}
	return r.nodes[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []*Node {
	return r.nodes
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.nodes)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.nodes) > 0
}

func (r FinderResult) description() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

type predicateFinder struct {
	match func(*Node) bool
	desc  string
}

func (f *predicateFinder) Evaluate(root *Node) []*Node {
	return collectMatches(root, f.match)
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByTag matches nodes with the given tag.
func ByTag(tag element.Tag) Finder {
	return &predicateFinder{
		match: func(n *Node) bool { return n.Tag == tag },
		desc:  fmt.Sprintf("ByTag(%s)", tag),
	}
}

// ByText matches text nodes whose content equals text.
func ByText(text string) Finder {
	return &predicateFinder{
		match: func(n *Node) bool {
			return n.Tag == element.TextTag && n.Props.GetString(element.TextProp) == text
		},
		desc: fmt.Sprintf("ByText(%q)", text),
	}
}

// ByTextContaining matches text nodes whose content contains substr.
func ByTextContaining(substr string) Finder {
	return &predicateFinder{
		match: func(n *Node) bool {
			return n.Tag == element.TextTag && strings.Contains(n.Props.GetString(element.TextProp), substr)
		},
		desc: fmt.Sprintf("ByTextContaining(%q)", substr),
	}
}

// ByProp matches nodes whose property key deeply equals value.
func ByProp(key string, value any) Finder {
	return &predicateFinder{
		match: func(n *Node) bool {
			v, ok := n.Props[key]
			return ok && reflect.DeepEqual(v, value)
		},
		desc: fmt.Sprintf("ByProp(%s=%v)", key, value),
	}
}

// ByPredicate matches nodes for which fn returns true.
func ByPredicate(desc string, fn func(*Node) bool) Finder {
	return &predicateFinder{match: fn, desc: fmt.Sprintf("ByPredicate(%s)", desc)}
}

func collectMatches(root *Node, match func(*Node) bool) []*Node {
	var out []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, child := range n.Children {
			if match(child) {
				out = append(out, child)
			}
			visit(child)
		}
	}
	if root != nil {
		visit(root)
	}
	return out
}
