package intern

import "path/filepath"

// Paths interns absolute paths. Intern absolutizes path against cwd before
// storing it, so the same logical path always collapses to the same handle
// regardless of how it was spelled at the call site.
type Paths struct {
	strs *Strings
}

// NewPaths returns an empty path interner.
func NewPaths() *Paths {
	return &Paths{strs: NewStrings()}
}

// Intern absolutizes path against cwd (if path is relative) and interns the
// result.
func (p *Paths) Intern(cwd, path string) Handle {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, abs)
	}
	abs = filepath.Clean(abs)
	return p.strs.Intern(abs)
}

// Get returns the absolute path for h.
func (p *Paths) Get(h Handle) string {
	return p.strs.Get(h)
}
