package domain

// Location is a source position reported by the resolver for one address.
// Line stays textual because the resolver prints placeholders such as "?"
// when it cannot map an address.
type Location struct {
	Dir  string `json:"dir"`
	File string `json:"file"`
	Line string `json:"line"`
}

// Path joins directory and file the way the resolver printed them.
func (l Location) Path() string {
	if l.Dir == "" {
		return l.File
	}
	return l.Dir + "/" + l.File
}

// String renders dir/file:line.
func (l Location) String() string {
	if l.Line == "" {
		return l.Path()
	}
	return l.Path() + ":" + l.Line
}
