// Package graph orders compiled units so that each one is loaded after every
// unit it imports.
package graph

// Graph maps a unit identifier to its direct imports, in declaration order.
type Graph map[string][]string

// Flatten returns entry and everything it transitively imports, ordered so
// that every unit comes after all of its dependencies. Siblings keep their
// declaration order and a unit reached along several paths appears once, at
// its first position. Units missing from g are treated as having no imports.
// A unit already on the current path is skipped, so cycles terminate.
func Flatten(g Graph, entry string) []string {
	var out []string
	seen := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		if seen[id] || visiting[id] {
			return
		}
		visiting[id] = true
		for _, dep := range g[id] {
			visit(dep)
		}
		visiting[id] = false
		seen[id] = true
		out = append(out, id)
	}
	visit(entry)
	return out
}

// FlattenAll flattens each entry in turn and concatenates the results,
// keeping only the first occurrence of each unit.
func FlattenAll(g Graph, entries []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		for _, id := range Flatten(g, entry) {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
