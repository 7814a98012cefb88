package link

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/compiler"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/naming"
)

// unitLayer serves one unit's compile: the unit's own stage-one body as the
// entry, and every other unit as a module that reads that unit's global.
type unitLayer struct {
	unit  *compiler.Unit
	units map[string]*compiler.Unit
	names *naming.Allocator
}

// NewLayer returns the module layer for compiling unit.
func NewLayer(unit *compiler.Unit, units map[string]*compiler.Unit, names *naming.Allocator) compiler.Layer {
	return &unitLayer{unit: unit, units: units, names: names}
}

func (l *unitLayer) Resolve(ref, importer string) (string, bool, error) {
	if importer == "" {
		return ref, ref == l.unit.ID, nil
	}
	if !strings.HasPrefix(ref, "./") && !strings.HasPrefix(ref, "../") {
		return "", false, nil
	}
	id := path.Join(path.Dir(importer), ref)
	if _, ok := l.units[id]; !ok {
		return "", false, fmt.Errorf("unit %s imports unknown unit %s", importer, ref)
	}
	// Only static imports are ordered before this unit in the manifest, so
	// any other reference would read a global that is never set.
	if !slices.Contains(l.unit.Imports, id) {
		if slices.Contains(l.unit.DynamicImports, id) {
			return "", false, fmt.Errorf("unit %s loads unit %s with a dynamic import, which manifest scripts cannot do", l.unit.ID, id)
		}
		return "", false, fmt.Errorf("unit %s imports unit %s outside its static imports", l.unit.ID, id)
	}
	return id, true, nil
}

func (l *unitLayer) Load(id string) (string, bool, error) {
	if id == l.unit.ID {
		return l.unit.Body, true, nil
	}
	dep, ok := l.units[id]
	if !ok {
		return "", false, nil
	}
	return GlobalModule(l.names.Allocate(id), dep.Exports), true, nil
}

// GlobalModule returns a module that re-exports the named exports of the
// object held in the global variable binding.
func GlobalModule(binding string, exports []string) string {
	if len(exports) == 0 {
		return "export {};\n"
	}
	props := make([]string, len(exports))
	specs := make([]string, len(exports))
	for i, name := range exports {
		local := "__export" + strconv.Itoa(i)
		props[i] = propertyName(name) + ": " + local
		specs[i] = local + " as " + propertyName(name)
	}
	return fmt.Sprintf("const { %s } = %s;\nexport { %s };\n",
		strings.Join(props, ", "), binding, strings.Join(specs, ", "))
}

// propertyName renders name as an object key or export name, quoting it
// when it is not a plain identifier.
func propertyName(name string) string {
	if naming.IsIdentifier(name) {
		return name
	}
	quoted, _ := json.Marshal(name)
	return string(quoted)
}
