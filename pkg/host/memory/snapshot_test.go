package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCaptureSnapshotStructure(t *testing.T) {
	root := buildTree(t)
	snap := CaptureSnapshot(root)

	if len(snap.Tree) != 1 {
		t.Fatalf("expected one top-level node, got %d", len(snap.Tree))
	}
	ul := snap.Tree[0]
	if ul.ID != "ul#0" {
		t.Errorf("ID = %q, want ul#0", ul.ID)
	}
	if ul.Props["class"] != "list" {
		t.Errorf("class = %v", ul.Props["class"])
	}
	if len(ul.Children) != 2 || ul.Children[1].ID != "li#1" {
		t.Fatalf("unexpected children: %+v", ul.Children)
	}
	if got := ul.Children[1].Children[0].Text; got != "two" {
		t.Errorf("text = %q, want two", got)
	}
}

func TestSnapshotDiff(t *testing.T) {
	a := CaptureSnapshot(buildTree(t))
	b := CaptureSnapshot(buildTree(t))
	if diff := a.Diff(b); diff != "" {
		t.Errorf("expected no diff for identical trees, got:\n%s", diff)
	}

	b.Tree[0].Props["class"] = "other"
	if diff := a.Diff(b); diff == "" {
		t.Error("expected diff for different snapshots")
	}
}

func TestSnapshotUpdateAndMatch(t *testing.T) {
	t.Setenv(UpdateSnapshotsEnv, "")
	snap := CaptureSnapshot(buildTree(t))

	path := filepath.Join(t.TempDir(), "testdata", "list.snapshot.yaml")
	if err := snap.UpdateFile(path); err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "id: ul#0") {
		t.Errorf("snapshot should be YAML, got:\n%s", data)
	}

	snap.MatchesFile(t, path)
}

func TestSnapshotMatchesFileMissing(t *testing.T) {
	t.Setenv(UpdateSnapshotsEnv, "")
	snap := CaptureSnapshot(buildTree(t))

	failed := false
	sub := &fatalRecorder{name: t.Name(), onFatal: func() { failed = true }}
	snap.MatchesFile(sub, filepath.Join(t.TempDir(), "missing.yaml"))

	if !failed {
		t.Error("expected MatchesFile to fail for missing file")
	}
}

func TestSnapshotMatchesFileMismatch(t *testing.T) {
	t.Setenv(UpdateSnapshotsEnv, "")
	first := CaptureSnapshot(buildTree(t))
	path := filepath.Join(t.TempDir(), "snap.yaml")
	if err := first.UpdateFile(path); err != nil {
		t.Fatal(err)
	}

	second := CaptureSnapshot(buildTree(t))
	second.Tree[0].Children = second.Tree[0].Children[:1]

	errored := false
	sub := &errorRecorder{name: t.Name(), onError: func() { errored = true }}
	second.MatchesFile(sub, path)

	if !errored {
		t.Error("expected MatchesFile to report a mismatch")
	}
}

func TestSnapshotUpdateMode(t *testing.T) {
	snap := CaptureSnapshot(buildTree(t))
	path := filepath.Join(t.TempDir(), "update.yaml")

	t.Setenv(UpdateSnapshotsEnv, "1")
	snap.MatchesFile(t, path)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot file should be created in update mode: %v", err)
	}
}

// fatalRecorder intercepts Fatalf calls for testing MatchesFile failures.
type fatalRecorder struct {
	name    string
	onFatal func()
}

func (r *fatalRecorder) Fatalf(format string, args ...any) { r.onFatal() }
func (r *fatalRecorder) Errorf(format string, args ...any) {}
func (r *fatalRecorder) Helper()                           {}
func (r *fatalRecorder) Name() string                      { return r.name }

// errorRecorder intercepts Errorf calls for testing MatchesFile mismatches.
type errorRecorder struct {
	name    string
	onError func()
}

func (r *errorRecorder) Fatalf(format string, args ...any) {}
func (r *errorRecorder) Errorf(format string, args ...any) { r.onError() }
func (r *errorRecorder) Helper()                           {}
func (r *errorRecorder) Name() string                      { return r.name }
