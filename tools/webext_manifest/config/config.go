// Package config loads the optional TOML file holding build defaults.
//
// A file looks like:
//
//	manifest = "src/manifest.json"
//	out-dir = "dist"
//	target-platform = "gecko"
//	indent = 2
//	gecko-incognito-split-substitute = false
//	define = ["__DEV__=false"]
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/build"
)

// File is the configuration file as it is encoded in TOML. indent and
// gecko-incognito-split-substitute take more than one TOML type and are read
// off the tree separately.
type File struct {
	Manifest                        string   `toml:"manifest"`
	OutDir                          string   `toml:"out-dir"`
	TargetPlatform                  string   `toml:"target-platform"`
	WriteAllBrowserSpecificSettings bool     `toml:"write-all-browser-specific-settings"`
	Minify                          bool     `toml:"minify"`
	SingleEntry                     bool     `toml:"single-entry"`
	Target                          string   `toml:"target"`
	ModuleConfig                    string   `toml:"moduleconfig"`
	Define                          []string `toml:"define"`
	EnvFile                         string   `toml:"env-file"`
	EnvPrefix                       string   `toml:"env-prefix"`
	Concurrency                     int      `toml:"concurrency"`

	Indent                        string `toml:"-"`
	GeckoIncognitoSplitSubstitute string `toml:"-"`
}

// Load reads the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a configuration file.
func Parse(data []byte) (*File, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	f := &File{}
	if err := tree.Unmarshal(f); err != nil {
		return nil, err
	}

	switch v := tree.Get("indent").(type) {
	case nil:
	case int64:
		f.Indent = strconv.FormatInt(v, 10)
	case string:
		f.Indent = v
	default:
		return nil, fmt.Errorf("indent must be a number or a string, got %T", v)
	}

	switch v := tree.Get("gecko-incognito-split-substitute").(type) {
	case nil:
	case string:
		f.GeckoIncognitoSplitSubstitute = v
	case bool:
		if v {
			return nil, fmt.Errorf("gecko-incognito-split-substitute must be a string or false")
		}
		f.GeckoIncognitoSplitSubstitute = build.SubstituteDisabled
	default:
		return nil, fmt.Errorf("gecko-incognito-split-substitute must be a string or false, got %T", v)
	}
	return f, nil
}

// Apply fills every unset field of args from the file. Values already set on
// args, typically from flags, are kept.
func (f *File) Apply(args *build.Args) {
	setString(&args.Manifest, f.Manifest)
	setString(&args.OutDir, f.OutDir)
	setString(&args.TargetPlatform, f.TargetPlatform)
	setString(&args.Indent, f.Indent)
	setString(&args.GeckoIncognitoSplitSubstitute, f.GeckoIncognitoSplitSubstitute)
	setString(&args.Target, f.Target)
	setString(&args.ModuleConfig, f.ModuleConfig)
	setString(&args.EnvFile, f.EnvFile)
	setString(&args.EnvPrefix, f.EnvPrefix)

	args.WriteAllBrowserSpecificSettings = args.WriteAllBrowserSpecificSettings || f.WriteAllBrowserSpecificSettings
	args.Minify = args.Minify || f.Minify
	args.SingleEntry = args.SingleEntry || f.SingleEntry

	if len(args.Define) == 0 {
		args.Define = f.Define
	}
	if args.Concurrency == 0 {
		args.Concurrency = f.Concurrency
	}
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
