package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/composite/pkg/element"
)

// UpdateSnapshotsEnv names the environment variable that makes MatchesFile
// rewrite golden files instead of comparing against them.
const UpdateSnapshotsEnv = "COMPOSITE_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the node tree below a container.
type Snapshot struct {
	Tree []*SnapshotNode `yaml:"tree"`
}

// SnapshotNode is one serialized node. IDs are assigned per tag in
// traversal order ("div#0", "div#1"), so they are stable across runs.
type SnapshotNode struct {
	ID       string          `yaml:"id"`
	Text     string          `yaml:"text,omitempty"`
	Props    map[string]any  `yaml:"props,omitempty"`
	Children []*SnapshotNode `yaml:"children,omitempty"`
}

// CaptureSnapshot serializes the children of container. Properties that are
// not scalars are recorded by type name.
func CaptureSnapshot(container *Node) *Snapshot {
	snap := &Snapshot{}
	counter := &tagCounter{}
	for _, child := range container.Children {
		snap.Tree = append(snap.Tree, captureNode(child, counter))
	}
	return snap
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When
// COMPOSITE_UPDATE_SNAPSHOTS=1 is set, the file is rewritten instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := LoadSnapshot(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateSnapshotsEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s (-expected +actual)\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateSnapshotsEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to path, creating directories as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal encodes the snapshot as YAML.
func (s *Snapshot) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Diff returns a readable diff from other to s, or "" when they are equal.
// Both sides are compared in their YAML-decoded form so that a snapshot
// loaded from disk equals the one it was written from.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, err := s.normalized()
	if err != nil {
		return err.Error()
	}
	b, err := other.normalized()
	if err != nil {
		return err.Error()
	}
	return cmp.Diff(b, a)
}

func (s *Snapshot) normalized() (any, error) {
	data, err := s.Marshal()
	if err != nil {
		return nil, err
	}
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadSnapshot reads a snapshot written by UpdateFile.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot YAML: %w", err)
	}
	return &snap, nil
}

// tagCounter assigns stable IDs like "div#0", "div#1".
type tagCounter struct {
	counts map[element.Tag]int
}

func (c *tagCounter) next(tag element.Tag) string {
	if c.counts == nil {
		c.counts = make(map[element.Tag]int)
	}
	n := c.counts[tag]
	c.counts[tag] = n + 1
	return fmt.Sprintf("%s#%d", tag, n)
}

func captureNode(n *Node, counter *tagCounter) *SnapshotNode {
	out := &SnapshotNode{ID: counter.next(n.Tag)}
	if n.Tag == element.TextTag {
		out.Text = n.Props.GetString(element.TextProp)
		return out
	}
	for key, value := range n.Props {
		if out.Props == nil {
			out.Props = make(map[string]any, len(n.Props))
		}
		if v, ok := scalar(value); ok {
			out.Props[key] = v
		} else {
			out.Props[key] = fmt.Sprintf("%T", value)
		}
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, captureNode(child, counter))
	}
	return out
}
