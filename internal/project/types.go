package project

// Project is one dependency checkout. Path is the identity key; Dependencies point from this
// project to the projects it includes, in manifest order.
type Project struct {
	Name         string
	Path         string
	Dependencies []*Project

	// Ignored holds include targets excluded by name. They are kept for display only and are
	// never edge targets.
	Ignored []*Project

	Skip   bool
	Ignore bool

	// includes lists Dependencies and Ignored together in manifest order.
	includes []*Project
}

// displayChildren returns the include targets of p in manifest order.
func (p *Project) displayChildren() []*Project {
	if p.includes != nil {
		return p.includes
	}
	out := append([]*Project(nil), p.Dependencies...)
	return append(out, p.Ignored...)
}

func (p *Project) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}

type visitState int

const (
	white visitState = iota
	gray
	black
	broken
)
