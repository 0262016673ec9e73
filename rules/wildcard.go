package rules

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

const globChars = "*?[{"

// expandGlobs replaces glob patterns in a prerequisite list with the
// matching files, sorted for determinism. A literal rule name always wins
// over pattern interpretation. A pattern matching nothing stays in the list
// and fails later as an unknown target.
func expandGlobs(prereqs []string, rs *RuleSet) ([]string, error) {
	out := make([]string, 0, len(prereqs))
	for _, p := range prereqs {
		if !strings.ContainsAny(p, globChars) {
			out = append(out, p)
			continue
		}
		if _, ok := rs.Lookup(p); ok {
			out = append(out, p)
			continue
		}
		matches, err := globMatches(p)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			out = append(out, p)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

func globMatches(pattern string) ([]string, error) {
	g, err := glob.Compile(filepath.ToSlash(pattern), '/')
	if err != nil {
		return nil, err
	}
	// walk from the deepest directory before the first metacharacter
	root := "."
	if i := strings.IndexAny(pattern, globChars); i >= 0 {
		if j := strings.LastIndexByte(pattern[:i], '/'); j > 0 {
			root = pattern[:j]
		}
	}
	var matches []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if g.Match(filepath.ToSlash(path)) {
			matches = append(matches, path)
		}
		return nil
	})
	sort.Strings(matches)
	return matches, nil
}
