package common

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Loaders maps file extensions to esbuild loaders.
var Loaders = map[string]api.Loader{
	".js":    api.LoaderJS,
	".jsx":   api.LoaderJSX,
	".ts":    api.LoaderTS,
	".tsx":   api.LoaderTSX,
	".json":  api.LoaderJSON,
	".css":   api.LoaderCSS,
	".mjs":   api.LoaderJS,
	".cjs":   api.LoaderJS,
	".md":    api.LoaderText,
	".txt":   api.LoaderText,
	".html":  api.LoaderText,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".gif":   api.LoaderFile,
}

// ParseModuleConfig reads a moduleconfig file mapping module names to paths.
// Each line has the format "module_name=path_to_output_dir".
func ParseModuleConfig(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		// Empty moduleconfig is valid (no dependencies)
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	modules := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			modules[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return modules, scanner.Err()
}

// ModuleResolvePlugin returns an esbuild plugin that resolves bare import
// specifiers using the moduleconfig map. Resolution goes through
// build.Resolve() from the package directory so that package.json
// "exports", "browser", "module" and "main" are honoured; when esbuild
// cannot resolve the package itself, the package.json entry is read directly.
func ModuleResolvePlugin(moduleMap map[string]string) api.Plugin {
	return api.Plugin{
		Name: "module-resolve",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					// Skip relative and absolute paths
					if len(args.Path) == 0 || args.Path[0] == '.' || args.Path[0] == '/' {
						return api.OnResolveResult{}, nil
					}

					name, dir := matchModule(moduleMap, args.Path)
					if name == "" {
						return api.OnResolveResult{}, nil
					}

					subpath := "."
					if args.Path != name {
						subpath = "./" + strings.TrimPrefix(args.Path, name+"/")
					}
					result := build.Resolve(subpath, api.ResolveOptions{
						ResolveDir: dir,
						Kind:       args.Kind,
					})
					if len(result.Errors) == 0 {
						return api.OnResolveResult{Path: result.Path}, nil
					}
					if entry := resolvePackageEntry(dir, subpath, "browser"); entry != "" {
						return api.OnResolveResult{Path: entry}, nil
					}
					return api.OnResolveResult{}, nil
				},
			)
		},
	}
}

// matchModule finds the longest module name that path is, or is inside of.
func matchModule(moduleMap map[string]string, path string) (string, string) {
	bestMatch := ""
	bestPath := ""
	for name, dir := range moduleMap {
		if path == name || strings.HasPrefix(path, name+"/") {
			if len(name) > len(bestMatch) {
				bestMatch = name
				bestPath = dir
			}
		}
	}
	return bestMatch, bestPath
}

// RawImportPlugin returns an esbuild plugin that strips ?raw suffixes from
// import paths. Files loaded this way use the text loader, returning contents
// as a string, like Vite's ?raw imports.
func RawImportPlugin() api.Plugin {
	return api.Plugin{
		Name: "raw-import",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `\?raw$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					cleanPath := strings.TrimSuffix(args.Path, "?raw")
					return api.OnResolveResult{
						Path:      filepath.Join(args.ResolveDir, cleanPath),
						Namespace: "raw",
					}, nil
				},
			)
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: "raw"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := string(data)
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     api.LoaderText,
						WatchFiles: []string{args.Path},
					}, nil
				},
			)
		},
	}
}

// ParseDefines converts "key=value" pairs into an esbuild define map.
// Entries without "=" are ignored.
func ParseDefines(defines []string) map[string]string {
	out := make(map[string]string, len(defines))
	for _, d := range defines {
		parts := strings.SplitN(d, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			continue
		}
		out[strings.TrimSpace(parts[0])] = parts[1]
	}
	return out
}
