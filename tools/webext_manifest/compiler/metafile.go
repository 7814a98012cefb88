package compiler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// metafileData represents the parts of esbuild's metafile JSON we need.
type metafileData struct {
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileOutput struct {
	Imports []struct {
		Path     string `json:"path"`
		Kind     string `json:"kind"`
		External bool   `json:"external"`
	} `json:"imports"`
	Exports    []string `json:"exports"`
	EntryPoint string   `json:"entryPoint"`
}

// isScript reports whether an output path is a JavaScript unit rather than an
// asset such as a stylesheet or a copied file.
func isScript(path string) bool {
	switch filepath.Ext(path) {
	case ".js", ".mjs", ".cjs":
		return true
	}
	return false
}

// unitsFromMetafile builds the unit graph from a metafile. Metafile paths are
// relative to workDir; unit IDs are relative to outDir.
func unitsFromMetafile(metafile, workDir, outDir string) (*SplitResult, error) {
	var meta metafileData
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	unitID := func(metaPath string) (string, error) {
		rel, err := filepath.Rel(outDir, filepath.Join(workDir, filepath.FromSlash(metaPath)))
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("output %s is outside %s", metaPath, outDir)
		}
		return filepath.ToSlash(rel), nil
	}

	res := &SplitResult{
		Units:      make(map[string]*Unit),
		EntryUnits: make(map[string]string),
		Assets:     make(map[string][]byte),
	}
	for path, out := range meta.Outputs {
		if !isScript(path) {
			continue
		}
		id, err := unitID(path)
		if err != nil {
			return nil, err
		}
		u := &Unit{ID: id, Exports: out.Exports}
		for _, imp := range out.Imports {
			// Externals stay as runtime references.
			if imp.External {
				continue
			}
			switch imp.Kind {
			case "import-statement":
				dep, err := unitID(imp.Path)
				if err != nil {
					return nil, err
				}
				u.Imports = append(u.Imports, dep)
			case "dynamic-import":
				dep, err := unitID(imp.Path)
				if err != nil {
					return nil, err
				}
				u.DynamicImports = append(u.DynamicImports, dep)
			}
		}
		if out.EntryPoint != "" {
			u.Entry = filepath.Join(workDir, filepath.FromSlash(out.EntryPoint))
			res.EntryUnits[u.Entry] = id
		}
		res.Units[id] = u
	}
	return res, nil
}
