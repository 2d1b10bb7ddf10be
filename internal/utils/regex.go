package utils

import (
	"regexp"
	"sync"
)

// LazyRegex compiles a regex pattern on first use and caches the result.
// Builtin handlers declare their patterns as package-level LazyRegex values
// so that a process only pays for the patterns of the handler it runs.
type LazyRegex struct {
	pattern string
	once    sync.Once
	re      *regexp.Regexp
}

// NewLazyRegex creates a LazyRegex that will compile pattern on first use.
func NewLazyRegex(pattern string) *LazyRegex {
	return &LazyRegex{pattern: pattern}
}

// Re returns the compiled regexp, compiling it on first call.
// Panics if the pattern is invalid.
func (lr *LazyRegex) Re() *regexp.Regexp {
	lr.once.Do(func() {
		lr.re = regexp.MustCompile(lr.pattern)
	})
	return lr.re
}

// MatchString reports whether s contains any match of the pattern.
func (lr *LazyRegex) MatchString(s string) bool {
	return lr.Re().MatchString(s)
}

// String returns the source pattern.
func (lr *LazyRegex) String() string {
	return lr.pattern
}
