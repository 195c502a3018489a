package tts

import (
	"maps"
	"slices"
)

// FileSet is a set of repository-relative file paths.
type FileSet map[string]struct{}

// NewFileSet creates a set holding paths.
func NewFileSet(paths ...string) FileSet {
	s := make(FileSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether path is in the set.
func (s FileSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Sorted returns the paths in lexical order.
func (s FileSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
