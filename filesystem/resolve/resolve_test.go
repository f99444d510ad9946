package resolve

import (
	"testing"

	"github.com/oss-userfs/userfs/filesystem/inode"
)

func TestSplitCollapsesSeparators(t *testing.T) {
	got := Split("//a//b/")
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Split = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Split = %v, want %v", got, want)
		}
	}
}

func TestValidName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"file.txt", true},
		{"u_score-dash.ex", true}, // exactly maxName-1 = 15 bytes
		{"", false},
		{"has space", false},
		{"slash/inside", false},
		{"toolongtoolongtoolong", false}, // longer than maxName-1 for maxName=16
	}
	for _, c := range cases {
		if got := ValidName(c.name, 16); got != c.ok {
			t.Errorf("ValidName(%q) = %v, want %v", c.name, got, c.ok)
		}
	}
}

// stubTable/stubDir implement Loader/Finder over an in-memory tree, for
// exercising Resolve's walk logic in isolation from the inode/dirent
// on-disk encodings (covered by their own package tests, and end-to-end by
// package filesystem's tests).
type stubTable struct {
	kinds map[int32]inode.Kind
}

func (s *stubTable) Load(c *inode.Cache, n int) (inode.Inode, error) {
	return inode.Inode{Type: s.kinds[int32(n)]}, nil
}

type stubDir struct {
	children map[int32]map[string]int32
}

func (s *stubDir) Find(dir inode.Inode, name string) (int32, bool) {
	// the stub doesn't carry which directory dir is, so tests using this
	// stub only ever have one directory level of children at a time.
	for _, m := range s.children {
		if child, ok := m[name]; ok {
			return child, true
		}
	}
	return 0, false
}

func TestResolveRequiresAbsolutePath(t *testing.T) {
	table := &stubTable{kinds: map[int32]inode.Kind{0: inode.KindDir}}
	dirs := &stubDir{children: map[int32]map[string]int32{0: {}}}
	_, err := Resolve(table, dirs, "relative/path", 16)
	if err == nil {
		t.Fatalf("expected error for a non-absolute path")
	}
}

func TestResolveRootAlone(t *testing.T) {
	table := &stubTable{kinds: map[int32]inode.Kind{0: inode.KindDir}}
	dirs := &stubDir{children: map[int32]map[string]int32{0: {}}}
	res, err := Resolve(table, dirs, "/", 16)
	if err != nil {
		t.Fatalf("Resolve(/) failed: %v", err)
	}
	if res.Parent != RootInode || res.Child != RootInode || res.LastName != "" {
		t.Fatalf("Resolve(/) = %+v", res)
	}
}

func TestResolveFoundAndMissingLastComponent(t *testing.T) {
	table := &stubTable{kinds: map[int32]inode.Kind{0: inode.KindDir, 1: inode.KindFile}}
	dirs := &stubDir{children: map[int32]map[string]int32{0: {"a.txt": 1}}}

	res, err := Resolve(table, dirs, "/a.txt", 16)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Parent != 0 || res.Child != 1 || res.LastName != "a.txt" {
		t.Fatalf("Resolve(/a.txt) = %+v", res)
	}

	res2, err := Resolve(table, dirs, "/new.txt", 16)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res2.Parent != 0 || res2.Child != -1 || res2.LastName != "new.txt" {
		t.Fatalf("Resolve(/new.txt) = %+v", res2)
	}
}

func TestResolveMissingIntermediateComponentFails(t *testing.T) {
	table := &stubTable{kinds: map[int32]inode.Kind{0: inode.KindDir}}
	dirs := &stubDir{children: map[int32]map[string]int32{0: {}}}
	if _, err := Resolve(table, dirs, "/nope/file.txt", 16); err == nil {
		t.Fatalf("expected error for missing intermediate component")
	}
}
