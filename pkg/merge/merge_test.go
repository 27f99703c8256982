package merge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unifile/pkg/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func runMerge(t *testing.T, sourceDir string, cfg *config.Config, extra ...string) (*RunSummary, string) {
	t.Helper()
	output := filepath.Join(t.TempDir(), "merged.txt")
	summary, err := Run(Arguments{SourceDir: sourceDir, Output: output, ExtraPatterns: extra}, cfg, zap.NewNop())
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	return summary, string(data)
}

func TestRunEndToEnd(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"lib/utils.py":          "def test():\n    return True\n",
		"__pycache__/cache.pyc": "compiled python",
	})

	summary, doc := runMerge(t, src, config.Default())

	assert.Equal(t, 1, summary.FilesIncluded)
	assert.Equal(t, 1, summary.FilesExcluded)
	assert.Equal(t, 0, summary.DecodeFailures)
	assert.False(t, summary.Truncated)

	assert.Equal(t, 1, strings.Count(doc, "### FILE: "))
	assert.Contains(t, doc, "### FILE: lib/utils.py\n")
	assert.Contains(t, doc, "   1 | def test():\n")
	assert.Contains(t, doc, "   2 |     return True\n")
	assert.Contains(t, doc, "Files processed: 1\n")
	assert.Contains(t, doc, "Files excluded: 1\n")
	assert.NotContains(t, doc, "compiled python")
}

func TestRunPrunesExcludedDirectories(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"src/main.go":             "package main\n",
		"node_modules/keep.go":    "should never appear\n",
		"node_modules/sub/ok.txt": "nor this\n",
	})

	summary, doc := runMerge(t, src, config.Default())

	assert.Equal(t, 1, summary.FilesIncluded)
	assert.NotContains(t, doc, "should never appear")
	assert.NotContains(t, doc, "nor this")
	assert.NotContains(t, doc, "node_modules")
}

func TestRunExtraPatternsUnionWithConfigured(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"app.py":    "print('hi')\n",
		"debug.log": "log line\n",
		"old.pyc":   "bytecode\n",
	})

	summary, doc := runMerge(t, src, config.Default(), "*.log")

	assert.Equal(t, 1, summary.FilesIncluded)
	assert.Equal(t, 2, summary.FilesExcluded)
	assert.Contains(t, doc, "### FILE: app.py\n")
	assert.NotContains(t, doc, "debug.log")
	assert.NotContains(t, doc, "old.pyc")
}

func TestRunDecodeFailureDoesNotAbort(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"good.txt": "fine\n"})
	require.NoError(t, os.WriteFile(filepath.Join(src, "blob.dat"), []byte{0xFF, 0x00, 0x01}, 0o644))

	summary, doc := runMerge(t, src, config.Default())

	assert.Equal(t, 1, summary.FilesIncluded)
	assert.Equal(t, 1, summary.DecodeFailures)
	assert.Contains(t, doc, "### FILE: good.txt\n")
	assert.Contains(t, doc, "Decode failures: 1\n")
	assert.NotContains(t, doc, "blob.dat")
}

func TestRunRecordsFallbackEncoding(t *testing.T) {
	src := t.TempDir()
	// Shift JIS bytes for こんにちは are invalid UTF-8, so decoding falls
	// through to cp932.
	sjis := []byte{0x82, 0xB1, 0x82, 0xF1, 0x82, 0xC9, 0x82, 0xBF, 0x82, 0xCD}
	require.NoError(t, os.WriteFile(filepath.Join(src, "jp.txt"), sjis, 0o644))

	output := filepath.Join(t.TempDir(), "merged.txt")
	cfg := config.Default()
	cfg.OutputFormat.AddLineNumbers = false

	summary, err := Run(Arguments{SourceDir: src, Output: output}, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesIncluded)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "こんにちは")
}

func TestRunSizeCapTruncates(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.txt": strings.Repeat("a", 800),
		"b.txt": strings.Repeat("b", 800),
		"c.txt": strings.Repeat("c", 800),
	})

	cfg := config.Default()
	cfg.Output.MaxTotalSizeKB = 1 // 1024 bytes: only a.txt fits

	summary, doc := runMerge(t, src, cfg)

	assert.Equal(t, 1, summary.FilesIncluded)
	assert.Equal(t, 2, summary.FilesExcluded)
	assert.True(t, summary.Truncated)
	assert.LessOrEqual(t, summary.BytesWritten, int64(1024))
	assert.Contains(t, doc, "### FILE: a.txt\n")
	assert.NotContains(t, doc, "### FILE: b.txt")
	assert.NotContains(t, doc, "### FILE: c.txt")
	assert.Contains(t, doc, "Truncated: size cap reached, remaining files excluded\n")
}

func TestRunDeterministicOrderAndOutput(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"b.txt":   "bee\n",
		"a/z.txt": "zed\n",
		"a.txt":   "ay\n",
	})

	cfg := config.Default()
	cfg.Output.AddTimestamp = false

	_, first := runMerge(t, src, cfg)
	_, second := runMerge(t, src, cfg)

	assert.Equal(t, stripDurationLine(first), stripDurationLine(second))

	// Lexicographic by relative path: a.txt < a/z.txt < b.txt.
	iA := strings.Index(first, "### FILE: a.txt\n")
	iAZ := strings.Index(first, "### FILE: a/z.txt\n")
	iB := strings.Index(first, "### FILE: b.txt\n")
	require.NotEqual(t, -1, iA)
	require.NotEqual(t, -1, iAZ)
	require.NotEqual(t, -1, iB)
	assert.Less(t, iA, iAZ)
	assert.Less(t, iAZ, iB)
}

func stripDurationLine(doc string) string {
	lines := strings.Split(doc, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "Duration: ") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func TestRunMissingSourceDirIsFatal(t *testing.T) {
	output := filepath.Join(t.TempDir(), "merged.txt")
	_, err := Run(Arguments{SourceDir: filepath.Join(t.TempDir(), "absent"), Output: output}, config.Default(), zap.NewNop())
	require.Error(t, err)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSourceNotADirectoryIsFatal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	_, err := Run(Arguments{SourceDir: src, Output: filepath.Join(t.TempDir(), "out.txt")}, config.Default(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRunUnwritableOutputIsFatal(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "x\n"})

	// The output's parent is a regular file, so the directory cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	output := filepath.Join(blocker, "out.txt")

	_, err := Run(Arguments{SourceDir: src, Output: output}, config.Default(), zap.NewNop())
	require.Error(t, err)
}

func TestRunWritesTreeWhenRequested(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"sub/inner.txt":      "x\n",
		"top.txt":            "y\n",
		"node_modules/n.txt": "hidden\n",
	})

	outDir := t.TempDir()
	args := Arguments{
		SourceDir: src,
		Output:    filepath.Join(outDir, "merged.txt"),
		Tree:      filepath.Join(outDir, "tree.txt"),
	}
	_, err := Run(args, config.Default(), zap.NewNop())
	require.NoError(t, err)

	data, err := os.ReadFile(args.Tree)
	require.NoError(t, err)
	tree := string(data)
	assert.Contains(t, tree, "├── sub/")
	assert.Contains(t, tree, "inner.txt")
	assert.Contains(t, tree, "└── top.txt")
	assert.NotContains(t, tree, "node_modules")
}
