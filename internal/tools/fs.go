package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ListDirectoryTool lists directory entries confined to the project root.
// Requests are checked lexically before touching the filesystem, then
// re-checked after symlink resolution so a link cannot escape the root.
type ListDirectoryTool struct {
	root string
}

// NewListDirectoryTool confines listings to root. The root is resolved once
// at startup; if it does not exist yet every listing fails closed.
func NewListDirectoryTool(root string) *ListDirectoryTool {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &ListDirectoryTool{root: abs}
}

func (t *ListDirectoryTool) Name() string { return "list_directory" }

func (t *ListDirectoryTool) Description() string {
	return "List files and folders within the project directory (safe, relative paths only). when done let user know"
}

func (t *ListDirectoryTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Relative path inside the project (default: '.')",
		},
	}, nil)
}

func (t *ListDirectoryTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	rel := strings.ReplaceAll(stringArg(args, "path"), "\\", "/")
	if rel == "" {
		rel = "."
	}
	if filepath.IsAbs(rel) {
		return ErrorResult("Path outside project root is not allowed")
	}

	target := filepath.Join(t.root, filepath.FromSlash(rel))
	if !isPathInside(target, t.root) {
		return ErrorResult("Path outside project root is not allowed")
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return ErrorResult("Directory not found")
	}
	if !isPathInside(resolved, t.root) {
		return ErrorResult("Path outside project root is not allowed")
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return ErrorResult("Directory not found")
	}

	items := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		var size interface{}
		if !e.IsDir() {
			if info, err := e.Info(); err == nil {
				size = info.Size()
			}
		}
		items = append(items, map[string]interface{}{
			"name":   e.Name(),
			"is_dir": e.IsDir(),
			"size":   size,
		})
	}
	return NewResult(map[string]interface{}{"items": items})
}

// isPathInside reports whether child is parent itself or below it.
func isPathInside(child, parent string) bool {
	child, parent = filepath.Clean(child), filepath.Clean(parent)
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
