// Package link runs the second compile stage: each unit of the code-split
// graph is recompiled on its own into a plain script whose imports from
// other units are read from their global variables.
package link

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/compiler"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/logging"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/naming"
)

// ErrArtifactCount is returned when a unit compiles to anything other than
// exactly one output file.
var ErrArtifactCount = errors.New("internal error: expected exactly one artifact per unit")

// Options configures Run.
type Options struct {
	Names *naming.Allocator
	// Plugins are the caller's non-resolution plugins, run for every unit.
	Plugins []api.Plugin
	Minify  bool
	Target  api.Target
	OutDir  string
	// Concurrency bounds parallel compiles. Zero means one per CPU.
	Concurrency int
}

// Run recompiles every unit and replaces its body with the result. Units are
// only updated once all of them have compiled; on error none are changed.
func Run(ctx context.Context, engine compiler.Engine, units map[string]*compiler.Unit, opts Options) error {
	if opts.Names == nil {
		opts.Names = naming.New("")
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	// Allocate in a fixed order so collision suffixes don't depend on
	// scheduling.
	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		opts.Names.Allocate(id)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	bodies := make(map[string]string, len(ids))
	for _, id := range ids {
		unit := units[id]
		g.Go(func() error {
			body, err := linkUnit(gctx, engine, unit, units, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			bodies[unit.ID] = body
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for id, body := range bodies {
		units[id].Body = body
	}
	return nil
}

func linkUnit(ctx context.Context, engine compiler.Engine, unit *compiler.Unit, units map[string]*compiler.Unit, opts Options) (string, error) {
	name := opts.Names.Allocate(unit.ID)
	artifacts, err := engine.Compile(ctx, compiler.CompileRequest{
		Entry:      unit.ID,
		GlobalName: name,
		Layer:      NewLayer(unit, units, opts.Names),
		ResolveDir: opts.OutDir,
		Plugins:    opts.Plugins,
		OutFile:    filepath.Join(opts.OutDir, filepath.FromSlash(unit.ID)),
		Minify:     opts.Minify,
		Target:     opts.Target,
	})
	if err != nil {
		return "", err
	}
	if len(artifacts) != 1 {
		return "", fmt.Errorf("%w: unit %s produced %d", ErrArtifactCount, unit.ID, len(artifacts))
	}

	logging.Logger().Debug("linked unit",
		zap.String("unit", unit.ID),
		zap.String("global", name),
		zap.Int("imports", len(unit.Imports)),
		zap.Int("bytes", len(artifacts[0].Contents)))
	return string(artifacts[0].Contents), nil
}
