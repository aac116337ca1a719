package intern

// Strings wraps an Interner for string keys. Input is stored as given;
// it is not checked for valid UTF-8.
type Strings struct {
	bytes *Interner
}

// NewStrings returns an empty string interner.
func NewStrings() *Strings {
	return &Strings{bytes: New()}
}

// Intern returns the handle for s.
func (s *Strings) Intern(str string) Handle {
	return s.bytes.Intern([]byte(str))
}

// Get returns the string for h.
func (s *Strings) Get(h Handle) string {
	return string(s.bytes.Get(h))
}
