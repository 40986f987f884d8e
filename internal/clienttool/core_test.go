package clienttool

import (
	"context"
	"errors"
	"testing"

	"agentwire/internal/repo"
)

func runTool(t *testing.T, reg *Registry, r repo.Repository, name string, args map[string]any) (map[string]any, error) {
	t.Helper()
	tool, err := reg.Get(name)
	if err != nil {
		t.Fatalf("tool %s not registered: %v", name, err)
	}
	return tool.Run(context.Background(), r, args)
}

func seedRepo() repo.Repository {
	return repo.NewMemRepository().Seed(map[string]string{
		"main.go":        "package main\n\nfunc main() {}\n",
		"docs/notes.txt": "alpha\nbeta\ngamma\n",
	})
}

// =============================================================================
// FILE TOOLS
// =============================================================================

func TestReadFileTool(t *testing.T) {
	t.Parallel()
	reg := NewCoreRegistry()
	r := seedRepo()

	out, err := runTool(t, reg, r, "read_file", map[string]any{"path": "docs/notes.txt"})
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if out["content"] != "alpha\nbeta\ngamma\n" {
		t.Errorf("content mismatch: %q", out["content"])
	}

	_, err = runTool(t, reg, r, "read_file", map[string]any{"path": "missing.txt"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = runTool(t, reg, r, "read_file", map[string]any{})
	if !errors.Is(err, ErrMissingArg) {
		t.Errorf("expected ErrMissingArg, got %v", err)
	}
}

func TestWriteFileTool(t *testing.T) {
	t.Parallel()
	reg := NewCoreRegistry()
	r := seedRepo()

	out, err := runTool(t, reg, r, "write_file", map[string]any{
		"path":    "new/file.txt",
		"content": "hello",
	})
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if out["bytes"] != 5 {
		t.Errorf("bytes mismatch: %v", out["bytes"])
	}

	got, err := r.Read("new/file.txt")
	if err != nil || got != "hello" {
		t.Errorf("write not visible through repository: %q, %v", got, err)
	}
}

func TestEditFileTool(t *testing.T) {
	t.Parallel()
	reg := NewCoreRegistry()

	t.Run("single replacement", func(t *testing.T) {
		r := repo.NewMemRepository().Seed(map[string]string{"a.txt": "x y x"})
		out, err := runTool(t, reg, r, "edit_file", map[string]any{
			"path": "a.txt", "old_text": "x", "new_text": "z",
		})
		if err != nil {
			t.Fatalf("edit_file: %v", err)
		}
		if out["replacements"] != 1 {
			t.Errorf("replacements mismatch: %v", out["replacements"])
		}
		if got, _ := r.Read("a.txt"); got != "z y x" {
			t.Errorf("content mismatch: %q", got)
		}
	})

	t.Run("replace all", func(t *testing.T) {
		r := repo.NewMemRepository().Seed(map[string]string{"a.txt": "x y x"})
		out, err := runTool(t, reg, r, "edit_file", map[string]any{
			"path": "a.txt", "old_text": "x", "new_text": "z", "replace_all": true,
		})
		if err != nil {
			t.Fatalf("edit_file: %v", err)
		}
		if out["replacements"] != 2 {
			t.Errorf("replacements mismatch: %v", out["replacements"])
		}
		if got, _ := r.Read("a.txt"); got != "z y z" {
			t.Errorf("content mismatch: %q", got)
		}
	})

	t.Run("old_text absent", func(t *testing.T) {
		r := repo.NewMemRepository().Seed(map[string]string{"a.txt": "x"})
		_, err := runTool(t, reg, r, "edit_file", map[string]any{
			"path": "a.txt", "old_text": "nope", "new_text": "z",
		})
		if err == nil {
			t.Error("editing with absent old_text must fail")
		}
		if got, _ := r.Read("a.txt"); got != "x" {
			t.Errorf("failed edit must not modify the file: %q", got)
		}
	})
}

func TestDeleteFileTool(t *testing.T) {
	t.Parallel()
	reg := NewCoreRegistry()
	r := seedRepo()

	if _, err := runTool(t, reg, r, "delete_file", map[string]any{"path": "main.go"}); err != nil {
		t.Fatalf("delete_file: %v", err)
	}
	if _, err := r.Read("main.go"); !errors.Is(err, repo.ErrNotFound) {
		t.Error("file should be gone after delete")
	}

	_, err := runTool(t, reg, r, "delete_file", map[string]any{"path": "main.go"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("deleting a missing file should fail, got %v", err)
	}
}

func TestListFilesTool(t *testing.T) {
	t.Parallel()
	reg := NewCoreRegistry()
	r := seedRepo()

	out, err := runTool(t, reg, r, "list_files", map[string]any{})
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	paths, ok := out["paths"].([]any)
	if !ok {
		t.Fatalf("paths should be []any, got %T", out["paths"])
	}
	if len(paths) != 2 || paths[0] != "docs/notes.txt" || paths[1] != "main.go" {
		t.Errorf("listing mismatch: %v", paths)
	}
	if out["count"] != 2 {
		t.Errorf("count mismatch: %v", out["count"])
	}
}

func TestSearchFilesTool(t *testing.T) {
	t.Parallel()
	reg := NewCoreRegistry()
	r := seedRepo()

	out, err := runTool(t, reg, r, "search_files", map[string]any{
		"pattern":      "BETA",
		"ignore_case":  true,
		"file_pattern": "*.txt",
		"max_results":  float64(10),
	})
	if err != nil {
		t.Fatalf("search_files: %v", err)
	}
	matches, ok := out["matches"].([]any)
	if !ok || len(matches) != 1 {
		t.Fatalf("expected 1 match, got %v", out["matches"])
	}
	m := matches[0].(map[string]any)
	if m["path"] != "docs/notes.txt" || m["line"] != 2 {
		t.Errorf("match mismatch: %v", m)
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_AllowList(t *testing.T) {
	t.Parallel()
	reg := NewCoreRegistry()

	want := []string{"delete_file", "edit_file", "list_files", "read_file", "search_files", "write_file"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("allow-list mismatch: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("allow-list mismatch at %d: %s != %s", i, got[i], want[i])
		}
	}

	if reg.Has("run_shell") {
		t.Error("unlisted tool must not be handled")
	}
	if _, err := reg.Get("run_shell"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistry_DuplicateAndInvalid(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	tool := &Tool{Name: "x", Run: func(context.Context, repo.Repository, map[string]any) (map[string]any, error) {
		return nil, nil
	}}
	if err := reg.Register(tool); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(tool); !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Errorf("expected ErrToolAlreadyRegistered, got %v", err)
	}
	if err := reg.Register(&Tool{Name: "", Run: tool.Run}); !errors.Is(err, ErrToolNameEmpty) {
		t.Errorf("expected ErrToolNameEmpty, got %v", err)
	}
	if err := reg.Register(&Tool{Name: "y"}); !errors.Is(err, ErrToolRunNil) {
		t.Errorf("expected ErrToolRunNil, got %v", err)
	}
}
