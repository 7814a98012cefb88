package manifest

import (
	"fmt"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/graph"
)

// UnitResolver maps an entry's absolute path to the compiled unit built from it.
type UnitResolver func(path string) (string, bool)

// Rewrite replaces every content script group's js list and the background
// scripts list with the flattened, dependency-ordered unit lists of the
// scripts they declared. Duplicates are removed within a group and within
// the background list.
func (m *Manifest) Rewrite(units UnitResolver, g graph.Graph) error {
	entries, err := m.Entries()
	if err != nil {
		return err
	}

	groups := m.contentScriptGroups()
	groupUnits := make([][]string, len(groups))
	var backgroundUnits []string
	for _, e := range entries {
		id, ok := units(e.Path)
		if !ok {
			return fmt.Errorf("no compiled unit for %s script %s", e.Field, e.Rel)
		}
		if e.Field == FieldBackground {
			backgroundUnits = append(backgroundUnits, id)
		} else {
			groupUnits[e.Group] = append(groupUnits[e.Group], id)
		}
	}

	for i, group := range groups {
		if _, ok := group["js"]; !ok {
			continue
		}
		group["js"] = toList(graph.FlattenAll(g, groupUnits[i]))
	}
	if bg := m.background(); bg != nil {
		if _, ok := bg["scripts"]; ok {
			bg["scripts"] = toList(graph.FlattenAll(g, backgroundUnits))
		}
	}
	return nil
}

// Scripts returns the current script lists keyed by a readable field name,
// e.g. "content_scripts[0].js" and "background.scripts".
func (m *Manifest) Scripts() map[string][]string {
	out := make(map[string][]string)
	for i, group := range m.contentScriptGroups() {
		if s, err := stringList(group["js"], ""); err == nil && s != nil {
			out[fmt.Sprintf("content_scripts[%d].js", i)] = s
		}
	}
	if s, err := stringList(m.backgroundScripts(), ""); err == nil && s != nil {
		out["background.scripts"] = s
	}
	return out
}
