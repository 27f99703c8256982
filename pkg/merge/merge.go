package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"unifile/pkg/config"
)

// candidate is a file that survived filtering during the walk and is waiting
// to be read, in relative-path order.
type candidate struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

// Run walks the source directory, reads every included file with encoding
// fallback, and writes the merge document to args.Output. Per-file failures
// are absorbed into the returned summary; only a missing source directory or
// an unwritable destination is an error, and in that case no output file is
// produced.
func Run(args Arguments, cfg *config.Config, logger *zap.Logger) (*RunSummary, error) {
	start := time.Now()

	sourceDir, err := filepath.Abs(args.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("source directory %s does not exist: %w", sourceDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", sourceDir)
	}
	logger.Info("Starting merge", zap.String("sourceDir", sourceDir), zap.String("output", args.Output))

	// Invocation-time patterns supplement the configured file globs.
	fileGlobs := append(append([]string{}, cfg.ExcludePatterns.Files...), args.ExtraPatterns...)
	rules := NewRules(cfg.ExcludePatterns.Directories, fileGlobs, cfg.ExcludePatterns.SystemFiles)

	summary := &RunSummary{}
	candidates, err := collectCandidates(sourceDir, rules, summary, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to walk source directory: %w", err)
	}

	records := readCandidates(candidates, cfg, summary, logger)

	end := time.Now()
	document, err := Format(records, *summary, cfg, sourceDir, start, end)
	if err != nil {
		return nil, err
	}

	if err := writeDocument(args.Output, document, logger); err != nil {
		return nil, err
	}

	if args.Tree != "" {
		treeContent, err := RenderTree(sourceDir, rules, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to render directory tree: %w", err)
		}
		if err := writeDocument(args.Tree, treeContent, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("Merge completed",
		zap.Int("filesIncluded", summary.FilesIncluded),
		zap.Int("filesExcluded", summary.FilesExcluded),
		zap.Int("decodeFailures", summary.DecodeFailures),
		zap.Int64("bytesWritten", summary.BytesWritten),
		zap.Bool("truncated", summary.Truncated),
		zap.Duration("elapsed", end.Sub(start)))
	return summary, nil
}

// collectCandidates walks the tree depth-first, pruning excluded directories
// before descending into them and filtering files by name. The result is
// sorted lexicographically by slash-separated relative path, which fixes the
// document order independently of filesystem enumeration order.
func collectCandidates(sourceDir string, rules *Rules, summary *RunSummary, logger *zap.Logger) ([]candidate, error) {
	var candidates []candidate

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == sourceDir {
				return err
			}
			logger.Warn("Error accessing path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if path == sourceDir {
			return nil
		}

		if d.IsDir() {
			if rules.ShouldExclude(d.Name(), true) {
				logger.Debug("Skipping excluded directory", zap.String("directory", path))
				summary.FilesExcluded++
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			logger.Debug("Skipping non-regular file", zap.String("path", path))
			return nil
		}
		if rules.ShouldExclude(d.Name(), false) {
			logger.Debug("Skipping excluded file", zap.String("path", path))
			summary.FilesExcluded++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("Failed to stat file", zap.String("path", path), zap.Error(err))
			return nil
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			logger.Warn("Failed to determine relative path", zap.String("path", path), zap.Error(err))
			return nil
		}

		candidates = append(candidates, candidate{
			absPath: path,
			relPath: filepath.ToSlash(relPath),
			info:    info,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].relPath < candidates[j].relPath
	})
	return candidates, nil
}

// readCandidates decodes candidates in order until the size cap is reached.
// Once the next file would push the accepted total past the cap, the run stops
// accepting files and the remainder is counted as excluded.
func readCandidates(candidates []candidate, cfg *config.Config, summary *RunSummary, logger *zap.Logger) []FileRecord {
	maxBytes := int64(cfg.Output.MaxTotalSizeKB) * 1024

	var records []FileRecord
	for i, c := range candidates {
		if maxBytes > 0 && summary.BytesWritten+c.info.Size() > maxBytes {
			summary.Truncated = true
			summary.FilesExcluded += len(candidates) - i
			logger.Warn("Size cap reached, excluding remaining files",
				zap.Int64("maxBytes", maxBytes),
				zap.Int64("acceptedBytes", summary.BytesWritten),
				zap.Int("remainingFiles", len(candidates)-i))
			break
		}

		text, encodingUsed, err := ReadText(c.absPath, cfg.Encoding.Default, cfg.Encoding.Fallback)
		if err != nil {
			summary.DecodeFailures++
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				logger.Warn("Failed to decode file with all encodings",
					zap.String("path", c.absPath),
					zap.Strings("attempted", decodeErr.Attempted))
			} else {
				logger.Warn("Failed to read file", zap.String("path", c.absPath), zap.Error(err))
			}
			continue
		}

		records = append(records, FileRecord{
			AbsPath:  c.absPath,
			RelPath:  c.relPath,
			Content:  text,
			Size:     c.info.Size(),
			ModTime:  c.info.ModTime(),
			Encoding: encodingUsed,
		})
		summary.FilesIncluded++
		summary.BytesWritten += c.info.Size()
		logger.Debug("Accepted file",
			zap.String("path", c.relPath),
			zap.String("encoding", encodingUsed),
			zap.Int64("sizeBytes", c.info.Size()))
	}
	return records
}

// writeDocument writes content to path in a single write, creating parent
// directories as needed.
func writeDocument(path, content string, logger *zap.Logger) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	logger.Debug("Wrote output file", zap.String("path", path), zap.Int("bytes", len(content)))
	return nil
}
