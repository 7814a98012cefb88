// Package build runs the whole pipeline for a web extension manifest: both
// compile stages, the manifest rewrite and cleanup, and emission.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/common"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/compiler"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/graph"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/link"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/logging"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/manifest"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/naming"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/split"
)

// DefaultGeckoIncognitoSplitSubstitute replaces incognito "split" on gecko
// unless configured otherwise.
const DefaultGeckoIncognitoSplitSubstitute = "not_allowed"

// SubstituteDisabled turns off the gecko incognito substitution.
const SubstituteDisabled = "false"

// DefaultEnvPrefix selects the env file variables exposed to scripts.
const DefaultEnvPrefix = "EXT_"

var (
	ErrMissingTargetPlatform = errors.New("targetPlatform option is required")
	ErrInvalidTargetPlatform = errors.New("targetPlatform must be gecko or chrome")
)

// Args holds the arguments for the build subcommand.
type Args struct {
	Manifest string
	OutDir   string

	TargetPlatform string
	// Indent is a number of spaces or a literal indent string. Empty
	// writes compact JSON.
	Indent string
	// GeckoIncognitoSplitSubstitute defaults to
	// DefaultGeckoIncognitoSplitSubstitute; SubstituteDisabled keeps "split".
	GeckoIncognitoSplitSubstitute   string
	WriteAllBrowserSpecificSettings bool

	Minify      bool
	SingleEntry bool
	Target      string

	ModuleConfig string
	Define       []string
	EnvFile      string
	EnvPrefix    string

	// TransformPlugins run for every unit in the second stage.
	TransformPlugins []api.Plugin

	Concurrency int
	Engine      compiler.Engine
}

// Result describes a finished build.
type Result struct {
	// Manifest is the serialized, rewritten manifest.
	Manifest []byte
	Units    map[string]*compiler.Unit
	Assets   map[string][]byte
	// Bindings maps unit ids to their global variable names.
	Bindings map[string]string
	// Scripts are the rewritten script lists, see manifest.Scripts.
	Scripts map[string][]string
}

// CleanOptions validates the manifest cleanup options in args.
func (args Args) CleanOptions() (manifest.CleanOptions, error) {
	switch args.TargetPlatform {
	case "":
		return manifest.CleanOptions{}, ErrMissingTargetPlatform
	case "gecko", "chrome":
	default:
		return manifest.CleanOptions{}, fmt.Errorf("%w, got %q", ErrInvalidTargetPlatform, args.TargetPlatform)
	}

	substitute := args.GeckoIncognitoSplitSubstitute
	switch substitute {
	case "":
		substitute = DefaultGeckoIncognitoSplitSubstitute
	case SubstituteDisabled:
		substitute = ""
	}
	return manifest.CleanOptions{
		TargetPlatform:                  args.TargetPlatform,
		WriteAllBrowserSpecificSettings: args.WriteAllBrowserSpecificSettings,
		GeckoIncognitoSplitSubstitute:   substitute,
	}, nil
}

// Run builds the extension described by args.Manifest into args.OutDir.
// Nothing is written unless every step succeeds.
func Run(ctx context.Context, args Args) (*Result, error) {
	cleanOpts, err := args.CleanOptions()
	if err != nil {
		return nil, err
	}
	target, err := common.ParseTarget(args.Target)
	if err != nil {
		return nil, err
	}
	if args.OutDir == "" {
		return nil, errors.New("out-dir option is required")
	}
	outDir, err := filepath.Abs(args.OutDir)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(args.Manifest)
	if err != nil {
		return nil, err
	}
	entries, err := m.Entries()
	if err != nil {
		return nil, err
	}

	moduleMap, err := common.ParseModuleConfig(args.ModuleConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to parse moduleconfig: %w", err)
	}
	define, err := defines(args)
	if err != nil {
		return nil, err
	}

	engine := args.Engine
	if engine == nil {
		engine = &compiler.ESBuild{LogLevel: api.LogLevelSilent}
	}

	stage, err := split.Run(ctx, engine, split.Request{
		Entries:      entries,
		ManifestPath: m.Path,
		OutDir:       outDir,
		Plugins: []api.Plugin{
			common.ModuleResolvePlugin(moduleMap),
			common.RawImportPlugin(),
		},
		Define:      define,
		SingleEntry: args.SingleEntry,
	})
	if err != nil {
		return nil, err
	}

	names := naming.New("")
	if err := link.Run(ctx, engine, stage.Units, link.Options{
		Names:       names,
		Plugins:     args.TransformPlugins,
		Minify:      args.Minify,
		Target:      target,
		OutDir:      outDir,
		Concurrency: args.Concurrency,
	}); err != nil {
		return nil, err
	}

	resolve := func(path string) (string, bool) {
		id, ok := stage.EntryUnits[path]
		return id, ok
	}
	if err := m.Rewrite(resolve, graph.Graph(compiler.Graph(stage.Units))); err != nil {
		return nil, err
	}
	m.Clean(cleanOpts)
	data, err := m.Marshal(manifest.ParseIndent(args.Indent))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Manifest: data,
		Units:    stage.Units,
		Assets:   stage.Assets,
		Bindings: names.Bindings(),
		Scripts:  m.Scripts(),
	}
	if err := emit(outDir, res); err != nil {
		return nil, err
	}
	logging.Logger().Info("built extension",
		zap.String("manifest", m.Path),
		zap.String("out", outDir),
		zap.Int("entries", len(entries)),
		zap.Int("units", len(res.Units)))
	return res, nil
}

// defines merges --define values, env file values and the mode defines, in
// that order of precedence.
func defines(args Args) (map[string]string, error) {
	define := common.ParseDefines(args.Define)
	if args.EnvFile != "" {
		prefix := args.EnvPrefix
		if prefix == "" {
			prefix = DefaultEnvPrefix
		}
		envDefines, err := common.LoadEnvFiles(args.EnvFile, "production", prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
		for k, v := range envDefines {
			if _, ok := define[k]; !ok {
				define[k] = v
			}
		}
	}
	common.MergeEnvDefines(define, "production")
	return define, nil
}

// emit writes every unit, asset and the manifest into a staging directory
// beside outDir, then moves them into outDir once all of them were written.
func emit(outDir string, res *Result) error {
	files := make(map[string][]byte, len(res.Units)+len(res.Assets)+1)
	for id, u := range res.Units {
		files[id] = []byte(u.Body)
	}
	for id, contents := range res.Assets {
		files[id] = contents
	}
	files["manifest.json"] = res.Manifest
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, id := range ids {
		path := filepath.Join(staging, filepath.FromSlash(id))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to write %s: %w", id, err)
		}
		if err := os.WriteFile(path, files[id], 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", id, err)
		}
	}
	for _, id := range ids {
		path := filepath.Join(outDir, filepath.FromSlash(id))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.Rename(filepath.Join(staging, filepath.FromSlash(id)), path); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", id, err)
		}
	}
	return nil
}

// Clean loads args.Manifest and returns it cleaned for args.TargetPlatform
// without compiling anything.
func Clean(args Args) ([]byte, error) {
	cleanOpts, err := args.CleanOptions()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(args.Manifest)
	if err != nil {
		return nil, err
	}
	m.Clean(cleanOpts)
	return m.Marshal(manifest.ParseIndent(args.Indent))
}
