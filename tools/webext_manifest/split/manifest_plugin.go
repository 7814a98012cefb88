package split

import (
	"path/filepath"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
)

// ManifestSpecifier is the reserved import path for the extension's own manifest.
const ManifestSpecifier = "webext:manifest"

// ManifestModule is the source served for the manifest. At runtime the
// extension reads its manifest from the browser rather than bundling it.
const ManifestModule = `export default (typeof browser !== "undefined" ? browser : chrome).runtime.getManifest();`

const manifestNamespace = "webext-manifest"

// ManifestPlugin returns an esbuild plugin that serves ManifestModule for
// imports of the manifest file at manifestPath and of ManifestSpecifier.
func ManifestPlugin(manifestPath string) api.Plugin {
	return api.Plugin{
		Name: "webext-manifest",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(ManifestSpecifier) + "$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: manifestPath, Namespace: manifestNamespace}, nil
				},
			)
			build.OnLoad(api.OnLoadOptions{Filter: manifestFilter(manifestPath)},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := ManifestModule
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				},
			)
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: manifestNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := ManifestModule
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				},
			)
		},
	}
}

// manifestFilter matches manifestPath and, when it differs, the real path
// esbuild reports for files reached through a symlink.
func manifestFilter(manifestPath string) string {
	pattern := regexp.QuoteMeta(manifestPath)
	if resolved, err := filepath.EvalSymlinks(manifestPath); err == nil && resolved != manifestPath {
		pattern += "|" + regexp.QuoteMeta(resolved)
	}
	return "^(?:" + pattern + ")$"
}
