package clienttool

import (
	"context"
	"fmt"
	"strings"

	"agentwire/internal/repo"
)

// CoreTools returns the file tools every chat surface shares: read, write,
// edit, delete, list, and content search, each mapped to exactly one
// repository operation.
func CoreTools() []*Tool {
	return []*Tool{
		readFileTool(),
		writeFileTool(),
		editFileTool(),
		deleteFileTool(),
		listFilesTool(),
		searchFilesTool(),
	}
}

func readFileTool() *Tool {
	return &Tool{
		Name: "read_file",
		Run: func(ctx context.Context, r repo.Repository, args map[string]any) (map[string]any, error) {
			path, err := stringArg(args, "path")
			if err != nil {
				return nil, err
			}
			content, err := r.Read(path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "content": content}, nil
		},
	}
}

func writeFileTool() *Tool {
	return &Tool{
		Name:    "write_file",
		Mutates: true,
		Run: func(ctx context.Context, r repo.Repository, args map[string]any) (map[string]any, error) {
			path, err := stringArg(args, "path")
			if err != nil {
				return nil, err
			}
			content, _ := args["content"].(string)
			if err := r.Write(path, content); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "bytes": len(content)}, nil
		},
	}
}

func editFileTool() *Tool {
	return &Tool{
		Name:    "edit_file",
		Mutates: true,
		Run: func(ctx context.Context, r repo.Repository, args map[string]any) (map[string]any, error) {
			path, err := stringArg(args, "path")
			if err != nil {
				return nil, err
			}
			oldText, err := stringArg(args, "old_text")
			if err != nil {
				return nil, err
			}
			newText, _ := args["new_text"].(string)
			replaceAll, _ := args["replace_all"].(bool)

			content, err := r.Read(path)
			if err != nil {
				return nil, err
			}
			if !strings.Contains(content, oldText) {
				return nil, fmt.Errorf("old_text not found in %s", path)
			}

			var updated string
			var count int
			if replaceAll {
				count = strings.Count(content, oldText)
				updated = strings.ReplaceAll(content, oldText, newText)
			} else {
				count = 1
				updated = strings.Replace(content, oldText, newText, 1)
			}

			if err := r.Write(path, updated); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "replacements": count}, nil
		},
	}
}

func deleteFileTool() *Tool {
	return &Tool{
		Name:    "delete_file",
		Mutates: true,
		Run: func(ctx context.Context, r repo.Repository, args map[string]any) (map[string]any, error) {
			path, err := stringArg(args, "path")
			if err != nil {
				return nil, err
			}
			if err := r.Delete(path); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "deleted": true}, nil
		},
	}
}

func listFilesTool() *Tool {
	return &Tool{
		Name: "list_files",
		Run: func(ctx context.Context, r repo.Repository, args map[string]any) (map[string]any, error) {
			paths, err := r.List()
			if err != nil {
				return nil, err
			}
			// JSON round-trips []string as []any; keep the synthesized
			// payload in the same shape a wire result would carry.
			out := make([]any, len(paths))
			for i, p := range paths {
				out[i] = p
			}
			return map[string]any{"paths": out, "count": len(paths)}, nil
		},
	}
}

func searchFilesTool() *Tool {
	return &Tool{
		Name: "search_files",
		Run: func(ctx context.Context, r repo.Repository, args map[string]any) (map[string]any, error) {
			pattern, err := stringArg(args, "pattern")
			if err != nil {
				return nil, err
			}

			opts := repo.SearchOptions{}
			if fp, ok := args["file_pattern"].(string); ok {
				opts.FilePattern = fp
			}
			if ic, ok := args["ignore_case"].(bool); ok {
				opts.IgnoreCase = ic
			}
			// JSON numbers arrive as float64.
			if mr, ok := args["max_results"].(float64); ok && mr > 0 {
				opts.MaxResults = int(mr)
			}

			matches, err := r.Search(pattern, opts)
			if err != nil {
				return nil, err
			}

			out := make([]any, len(matches))
			for i, m := range matches {
				out[i] = map[string]any{
					"path":  m.Path,
					"line":  m.Line,
					"match": m.Text,
				}
			}
			return map[string]any{"matches": out, "count": len(matches)}, nil
		},
	}
}
