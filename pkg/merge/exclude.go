package merge

import "path"

// Rules is the compiled exclusion rule set. The three pattern kinds have
// distinct matching semantics and are kept separate so each can be evaluated
// (and tested) on its own:
//
//   - directory names: exact match against a directory's name
//   - file globs: path.Match against a file's name
//   - system files: exact match against a file's name
//
// All matching is case-sensitive and applies to the final path component only,
// never the full path. A Rules value is immutable once built.
type Rules struct {
	dirNames    map[string]struct{}
	fileGlobs   []string
	systemFiles map[string]struct{}
}

// NewRules builds an exclusion rule set. Extra invocation-time patterns are
// passed by appending them to globs before calling; configured patterns are
// never replaced, only supplemented.
func NewRules(dirNames, fileGlobs, systemFiles []string) *Rules {
	r := &Rules{
		dirNames:    make(map[string]struct{}, len(dirNames)),
		fileGlobs:   make([]string, len(fileGlobs)),
		systemFiles: make(map[string]struct{}, len(systemFiles)),
	}
	for _, name := range dirNames {
		r.dirNames[name] = struct{}{}
	}
	copy(r.fileGlobs, fileGlobs)
	for _, name := range systemFiles {
		r.systemFiles[name] = struct{}{}
	}
	return r
}

// ShouldExclude reports whether the entry named by segment (a single path
// component) should be skipped. Directories are tested only against the
// directory-name rules; files are tested against the glob and system-file
// rules. Pure function of (segment, isDir) and the rule set.
func (r *Rules) ShouldExclude(segment string, isDir bool) bool {
	if isDir {
		_, ok := r.dirNames[segment]
		return ok
	}
	if _, ok := r.systemFiles[segment]; ok {
		return true
	}
	for _, glob := range r.fileGlobs {
		// Malformed patterns never match anything.
		if ok, err := path.Match(glob, segment); err == nil && ok {
			return true
		}
	}
	return false
}
