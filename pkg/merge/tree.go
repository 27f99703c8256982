package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RenderTree renders an ASCII tree of the source directory, omitting entries
// the exclusion rules would skip. Entries are listed directories-first, then
// case-insensitively alphabetical, so the tree is deterministic. Unreadable
// subdirectories are logged and skipped rather than failing the rendering.
func RenderTree(sourceDir string, rules *Rules, logger *zap.Logger) (string, error) {
	var b strings.Builder
	b.WriteString(sourceDir + "/\n")

	subtree, err := renderSubtree(sourceDir, rules, "", logger)
	if err != nil {
		return "", err
	}
	if subtree != "" {
		b.WriteString(subtree)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// renderSubtree builds the tree below directory with the given line prefix.
func renderSubtree(directory string, rules *Rules, prefix string, logger *zap.Logger) (string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", directory, err)
	}

	kept := entries[:0]
	for _, entry := range entries {
		if !rules.ShouldExclude(entry.Name(), entry.IsDir()) {
			kept = append(kept, entry)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].IsDir() != kept[j].IsDir() {
			return kept[i].IsDir()
		}
		return strings.ToLower(kept[i].Name()) < strings.ToLower(kept[j].Name())
	})

	var output []string
	for i, entry := range kept {
		connector := "├── "
		extension := "│   "
		if i == len(kept)-1 {
			connector = "└── "
			extension = "    "
		}

		if entry.IsDir() {
			output = append(output, prefix+connector+entry.Name()+"/")
			subtree, err := renderSubtree(filepath.Join(directory, entry.Name()), rules, prefix+extension, logger)
			if err != nil {
				logger.Warn("Failed to render subtree", zap.String("directory", filepath.Join(directory, entry.Name())), zap.Error(err))
				continue
			}
			if subtree != "" {
				output = append(output, subtree)
			}
		} else {
			output = append(output, prefix+connector+entry.Name())
		}
	}

	return strings.Join(output, "\n"), nil
}
