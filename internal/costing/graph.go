package costing

// FindCycle walks the sub-recipe graph depth first from start and returns
// the first cycle found as a path that begins and ends with the same id,
// or nil when the graph reachable from start is acyclic.
func FindCycle(start string, edges func(id string) []string) []string {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	path := make([]string, 0, 8)

	var visit func(id string) []string
	visit = func(id string) []string {
		switch state[id] {
		case visiting:
			for i, p := range path {
				if p == id {
					cycle := append([]string{}, path[i:]...)
					return append(cycle, id)
				}
			}
			return []string{id, id}
		case done:
			return nil
		}

		state[id] = visiting
		path = append(path, id)
		for _, next := range edges(id) {
			if cycle := visit(next); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	return visit(start)
}

// DependencyOrder sorts ids so every recipe comes after the recipes it
// uses. Edges leaving the id set are ignored. Input order breaks ties.
func DependencyOrder(ids []string, edges func(id string) []string) []string {
	member := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		member[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	var visit func(id string)
	visit = func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		for _, child := range edges(id) {
			if _, ok := member[child]; ok {
				visit(child)
			}
		}
		out = append(out, id)
	}

	for _, id := range ids {
		visit(id)
	}
	return out
}
