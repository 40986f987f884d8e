package repo

import (
	"errors"
	"testing"
)

func TestMemRepository_CRUD(t *testing.T) {
	t.Parallel()
	r := NewMemRepository().Seed(map[string]string{"a.txt": "v1"})

	got, err := r.Read("a.txt")
	if err != nil || got != "v1" {
		t.Errorf("read mismatch: %q, %v", got, err)
	}

	if err := r.Write("a.txt", "v2"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, _ := r.Read("a.txt"); got != "v2" {
		t.Errorf("overwrite mismatch: %q", got)
	}

	if err := r.Delete("a.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Read("a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := r.Delete("a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete should report ErrNotFound, got %v", err)
	}
}

func TestMemRepository_PathNormalization(t *testing.T) {
	t.Parallel()
	r := NewMemRepository()

	if err := r.Write("./dir\\sub\\file.txt", "x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := r.Read("dir/sub/file.txt")
	if err != nil || got != "x" {
		t.Errorf("normalized path should resolve: %q, %v", got, err)
	}
}

func TestMemRepository_ListSorted(t *testing.T) {
	t.Parallel()
	r := NewMemRepository().Seed(map[string]string{
		"z.txt":     "",
		"a/b.txt":   "",
		"m/n/o.txt": "",
	})

	paths, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"a/b.txt", "m/n/o.txt", "z.txt"}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("listing[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestMemRepository_Search(t *testing.T) {
	t.Parallel()
	r := NewMemRepository().Seed(map[string]string{
		"a.go":  "alpha\nALPHA\n",
		"b.txt": "alpha again\n",
	})

	matches, err := r.Search("alpha", SearchOptions{IgnoreCase: true, FilePattern: "*.go"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %v", matches)
	}
	if matches[0].Line != 1 || matches[1].Line != 2 {
		t.Errorf("line numbers mismatch: %v", matches)
	}
}
