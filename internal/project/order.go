package project

// Linearize returns every non-ignored project reachable from roots exactly once, dependencies
// before dependents. Roots are visited in order and children in manifest order; a project is
// emitted once all of its dependencies have been. With reversed the sequence is flipped.
func Linearize(roots []*Project, reversed bool) []*Project {
	state := map[string]visitState{}
	var out []*Project
	var walk func(*Project)
	walk = func(p *Project) {
		if p == nil || p.Ignore {
			return
		}
		if state[p.Path] != white {
			return
		}
		state[p.Path] = gray
		for _, dep := range p.Dependencies {
			walk(dep)
		}
		state[p.Path] = black
		out = append(out, p)
	}
	for _, r := range roots {
		walk(r)
	}
	if reversed {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Positions maps each project path in order to its index.
func Positions(order []*Project) map[string]int {
	out := make(map[string]int, len(order))
	for i, p := range order {
		out[p.Path] = i
	}
	return out
}

// IgnoredProjects returns the distinct ignored include targets of the projects Linearize would
// return, in that order.
func IgnoredProjects(roots []*Project) []*Project {
	seen := map[string]struct{}{}
	var out []*Project
	add := func(p *Project) {
		if _, ok := seen[p.Path]; ok {
			return
		}
		seen[p.Path] = struct{}{}
		out = append(out, p)
	}
	for _, r := range roots {
		if r.Ignore {
			add(r)
		}
	}
	for _, p := range Linearize(roots, false) {
		for _, ig := range p.Ignored {
			add(ig)
		}
	}
	return out
}
