package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ChunkNames is the output pattern for shared units.
const ChunkNames = "chunks/[name]-[hash]"

// layerNamespace is the esbuild namespace of modules supplied by a Layer.
const layerNamespace = "webext-unit"

// ESBuild implements Engine with esbuild.
type ESBuild struct {
	// LogLevel is passed through to esbuild. Errors are always returned
	// regardless of this setting.
	LogLevel api.LogLevel
}

// Split runs one esbuild build over every entry with code splitting enabled
// and reads the resulting unit graph back out of the metafile.
func (e *ESBuild) Split(ctx context.Context, req SplitRequest) (*SplitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := api.Build(api.BuildOptions{
		EntryPoints:   req.Entries,
		AbsWorkingDir: req.WorkDir,
		Outbase:       req.WorkDir,
		Outdir:        req.OutDir,
		ChunkNames:    ChunkNames,
		Bundle:        true,
		Splitting:     true,
		Write:         false,
		Metafile:      true,
		Format:        api.FormatESModule,
		Platform:      api.PlatformBrowser,
		Target:        api.ESNext,
		LogLevel:      e.LogLevel,
		Loader:        req.Loaders,
		Define:        req.Define,
		Plugins:       req.Plugins,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError("code splitting failed", result.Errors)
	}

	res, err := unitsFromMetafile(result.Metafile, req.WorkDir, req.OutDir)
	if err != nil {
		return nil, err
	}
	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(req.OutDir, f.Path)
		if err != nil {
			return nil, err
		}
		id := filepath.ToSlash(rel)
		if u, ok := res.Units[id]; ok {
			u.Body = string(f.Contents)
		} else {
			res.Assets[id] = f.Contents
		}
	}
	return res, nil
}

// Compile bundles req.Entry as an IIFE assigning its exports to
// req.GlobalName. Modules come from req.Layer first and the caller's
// plugins second.
func (e *ESBuild) Compile(ctx context.Context, req CompileRequest) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plugins := make([]api.Plugin, 0, len(req.Plugins)+1)
	if req.Layer != nil {
		plugins = append(plugins, LayerPlugin(req.Layer, req.ResolveDir))
	}
	plugins = append(plugins, req.Plugins...)

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{req.Entry},
		Outfile:           req.OutFile,
		Bundle:            true,
		Write:             false,
		Format:            api.FormatIIFE,
		GlobalName:        req.GlobalName,
		Platform:          api.PlatformBrowser,
		Target:            req.Target,
		LogLevel:          e.LogLevel,
		MinifySyntax:      req.Minify,
		MinifyWhitespace:  req.Minify,
		MinifyIdentifiers: req.Minify,
		Plugins:           plugins,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError(fmt.Sprintf("compiling %s failed", req.Entry), result.Errors)
	}

	artifacts := make([]Artifact, 0, len(result.OutputFiles))
	for _, f := range result.OutputFiles {
		artifacts = append(artifacts, Artifact{Path: f.Path, Contents: f.Contents})
	}
	return artifacts, nil
}

// LayerPlugin returns an esbuild plugin that serves modules from layer.
// Everything the layer declines falls through to later plugins and
// esbuild's own resolver.
func LayerPlugin(layer Layer, resolveDir string) api.Plugin {
	return api.Plugin{
		Name: "webext-unit-layer",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					importer := ""
					if args.Namespace == layerNamespace {
						importer = args.Importer
					}
					id, ok, err := layer.Resolve(args.Path, importer)
					if err != nil || !ok {
						return api.OnResolveResult{}, err
					}
					return api.OnResolveResult{Path: id, Namespace: layerNamespace}, nil
				},
			)
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: layerNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					body, ok, err := layer.Load(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					if !ok {
						return api.OnLoadResult{}, fmt.Errorf("no module %s", args.Path)
					}
					return api.OnLoadResult{
						Contents:   &body,
						Loader:     api.LoaderJS,
						ResolveDir: resolveDir,
					}, nil
				},
			)
		},
	}
}

// messagesError folds esbuild error messages into one error.
func messagesError(prefix string, msgs []api.Message) error {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			texts = append(texts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
		} else {
			texts = append(texts, m.Text)
		}
	}
	return fmt.Errorf("%s: %s", prefix, strings.Join(texts, "; "))
}
