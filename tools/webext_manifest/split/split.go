// Package split runs the first compile stage: every manifest script is
// bundled at once with code splitting, producing the compiled-unit graph.
package split

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/common"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/compiler"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/logging"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/manifest"
)

// ErrEntryCount is returned when single-entry mode sees any other number of
// entry points.
var ErrEntryCount = errors.New("expected exactly one entry point")

// Request configures Run.
type Request struct {
	Entries      []manifest.Entry
	ManifestPath string
	OutDir       string
	// Plugins are the caller's resolution and loading plugins. They run
	// after the manifest plugin.
	Plugins []api.Plugin
	Define  map[string]string
	// SingleEntry requires exactly one entry point.
	SingleEntry bool
}

// Run compiles every entry point in one code-splitting build.
func Run(ctx context.Context, engine compiler.Engine, req Request) (*compiler.SplitResult, error) {
	if req.SingleEntry && len(req.Entries) != 1 {
		return nil, fmt.Errorf("%w, got %d", ErrEntryCount, len(req.Entries))
	}

	var entries []string
	seen := make(map[string]bool)
	for _, e := range req.Entries {
		if !seen[e.Path] {
			seen[e.Path] = true
			entries = append(entries, e.Path)
		}
	}
	if len(entries) == 0 {
		return &compiler.SplitResult{
			Units:      map[string]*compiler.Unit{},
			EntryUnits: map[string]string{},
			Assets:     map[string][]byte{},
		}, nil
	}

	plugins := append([]api.Plugin{ManifestPlugin(req.ManifestPath)}, req.Plugins...)
	res, err := engine.Split(ctx, compiler.SplitRequest{
		Entries: entries,
		WorkDir: filepath.Dir(req.ManifestPath),
		OutDir:  req.OutDir,
		Plugins: plugins,
		Define:  req.Define,
		Loaders: common.Loaders,
	})
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if _, ok := res.EntryUnits[entry]; !ok {
			return nil, fmt.Errorf("no compiled unit for entry point %s", entry)
		}
	}

	logging.Logger().Debug("split entry points",
		zap.Int("entries", len(entries)),
		zap.Int("units", len(res.Units)),
		zap.Int("assets", len(res.Assets)))
	return res, nil
}
