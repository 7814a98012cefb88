// Package compiler is the interface between the manifest pipeline and the
// module bundler that does the actual compiling, plus an esbuild-backed
// implementation of it.
package compiler

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
)

// Unit is one output file of the code-splitting compile.
type Unit struct {
	// ID is the output path relative to the output directory, slash-separated.
	ID string
	// Imports lists the IDs of the units this one statically imports.
	Imports []string
	// DynamicImports lists the IDs of the units this one loads with import().
	DynamicImports []string
	// Exports lists the names this unit exports, in output order.
	Exports []string
	// Body is the compiled source. The linking stage replaces it.
	Body string
	// Entry is the absolute source path when this unit was built from an
	// entry point, empty for shared chunks.
	Entry string
}

// SplitRequest describes the multi-entry code-splitting compile.
type SplitRequest struct {
	Entries []string
	WorkDir string
	OutDir  string
	Plugins []api.Plugin
	Define  map[string]string
	Loaders map[string]api.Loader
}

// SplitResult is the unit graph produced by Split.
type SplitResult struct {
	Units map[string]*Unit
	// EntryUnits maps each absolute entry path to the ID of its unit.
	EntryUnits map[string]string
	// Assets holds non-script outputs (stylesheets, files) by output path.
	Assets map[string][]byte
}

// Layer supplies modules to a compile instead of the file system.
// Implementations report ok=false for references they do not handle.
type Layer interface {
	// Resolve maps an import reference to a module ID. importer is the ID of
	// the importing module when it was itself supplied by the layer, and
	// empty for entry points and foreign importers.
	Resolve(ref, importer string) (id string, ok bool, err error)
	// Load returns the source of a module ID returned by Resolve.
	Load(id string) (body string, ok bool, err error)
}

// CompileRequest describes a single-entry compile into one global-scope script.
type CompileRequest struct {
	Entry string
	// GlobalName is the variable the script assigns its exports to.
	GlobalName string
	Layer      Layer
	// ResolveDir is where bare imports inside layer modules are resolved from.
	ResolveDir string
	Plugins    []api.Plugin
	OutFile    string
	Minify     bool
	Target     api.Target
}

// Artifact is one output file of a compile.
type Artifact struct {
	Path     string
	Contents []byte
}

// Engine is a module bundler.
type Engine interface {
	// Split compiles every entry point at once, splitting shared code into
	// separate units that import each other as ES modules.
	Split(ctx context.Context, req SplitRequest) (*SplitResult, error)
	// Compile bundles one entry into a script without module linkage.
	Compile(ctx context.Context, req CompileRequest) ([]Artifact, error)
}

// Graph returns the import edges of units.
func Graph(units map[string]*Unit) map[string][]string {
	g := make(map[string][]string, len(units))
	for id, u := range units {
		g[id] = u.Imports
	}
	return g
}
