package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/thought-machine/go-flags"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/build"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/compiler"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/config"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/logging"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/manifest"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/report"
)

type CleanFlags struct {
	TargetPlatform                  string `short:"p" long:"target-platform" description:"Browser to build for: gecko or chrome"`
	Indent                          string `long:"indent" description:"Manifest indent: a number of spaces or a literal string"`
	GeckoIncognitoSplitSubstitute   string `long:"gecko-incognito-split-substitute" description:"Replacement for incognito \"split\" on gecko (default not_allowed, false to keep split)"`
	WriteAllBrowserSpecificSettings bool   `long:"write-all-browser-specific-settings" description:"Keep browser_specific_settings for every browser"`
}

var opts = struct {
	Usage string

	Verbose bool   `short:"v" long:"verbose" description:"Log debug output"`
	Quiet   bool   `short:"q" long:"quiet" description:"Don't print the build summary"`
	Config  string `short:"c" long:"config" description:"TOML file with defaults for build options"`

	Build struct {
		Manifest     string   `short:"i" long:"manifest" description:"Path to manifest.json"`
		OutDir       string   `short:"o" long:"out-dir" description:"Output directory"`
		Minify       bool     `long:"minify" description:"Minify output (syntax, whitespace, identifiers)"`
		SingleEntry  bool     `long:"single-entry" description:"Fail unless the manifest has exactly one script"`
		Target       string   `short:"t" long:"target" description:"Target ES version"`
		ModuleConfig string   `short:"m" long:"moduleconfig" description:"Aggregated moduleconfig file"`
		Define       []string `long:"define" description:"Define substitutions (key=value)"`
		EnvFile      string   `long:"env-file" description:"Base .env file; mode and .local variants are read too"`
		EnvPrefix    string   `long:"env-prefix" description:"Prefix of env variables exposed on import.meta.env (default EXT_)"`
		Concurrency  int      `short:"j" long:"concurrency" description:"Units compiled in parallel (default one per CPU)"`
		CleanFlags
	} `command:"build" alias:"b" description:"Compile every manifest script into plain scripts and rewrite the manifest"`

	Clean struct {
		Manifest string `short:"i" long:"manifest" description:"Path to manifest.json"`
		Out      string `short:"o" long:"out" description:"Output file (default stdout)"`
		CleanFlags
	} `command:"clean" alias:"c" description:"Strip other browsers' settings from a manifest without compiling"`

	Entries struct {
		Manifest string `short:"i" long:"manifest" description:"Path to manifest.json"`
	} `command:"entries" alias:"e" description:"List the entry points a manifest declares"`
}{
	Usage: `
webext_manifest builds web extensions from their manifest.json.

Every content and background script is compiled with shared code split into
separate scripts, then each script is turned into a plain script that reads
its dependencies from global variables, so that the manifest can load them
in order without module support.
  - build:   Compile the manifest's scripts and write the rewritten manifest
  - clean:   Only clean browser_specific_settings and incognito
  - entries: List the manifest's entry points
`,
}

// loadConfig applies the --config file under the flags already in args.
func loadConfig(args *build.Args) {
	if opts.Config == "" {
		return
	}
	f, err := config.Load(opts.Config)
	if err != nil {
		log.Fatal(err)
	}
	f.Apply(args)
}

func cleanArgs(manifestPath string, flags CleanFlags) build.Args {
	return build.Args{
		Manifest:                        manifestPath,
		TargetPlatform:                  flags.TargetPlatform,
		Indent:                          flags.Indent,
		GeckoIncognitoSplitSubstitute:   flags.GeckoIncognitoSplitSubstitute,
		WriteAllBrowserSpecificSettings: flags.WriteAllBrowserSpecificSettings,
	}
}

var subCommands = map[string]func() int{
	"build": func() int {
		args := cleanArgs(opts.Build.Manifest, opts.Build.CleanFlags)
		args.OutDir = opts.Build.OutDir
		args.Minify = opts.Build.Minify
		args.SingleEntry = opts.Build.SingleEntry
		args.Target = opts.Build.Target
		args.ModuleConfig = opts.Build.ModuleConfig
		args.Define = opts.Build.Define
		args.EnvFile = opts.Build.EnvFile
		args.EnvPrefix = opts.Build.EnvPrefix
		args.Concurrency = opts.Build.Concurrency
		loadConfig(&args)

		logLevel := api.LogLevelSilent
		if opts.Verbose {
			logLevel = api.LogLevelWarning
		}
		args.Engine = &compiler.ESBuild{LogLevel: logLevel}

		res, err := build.Run(context.Background(), args)
		if err != nil {
			log.Fatal(err)
		}
		if !opts.Quiet {
			summary, err := report.Summary(res, args.OutDir)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(summary)
		}
		return 0
	},
	"clean": func() int {
		args := cleanArgs(opts.Clean.Manifest, opts.Clean.CleanFlags)
		loadConfig(&args)
		data, err := build.Clean(args)
		if err != nil {
			log.Fatal(err)
		}
		data = append(data, '\n')
		if opts.Clean.Out == "" {
			os.Stdout.Write(data)
			return 0
		}
		if err := os.WriteFile(opts.Clean.Out, data, 0644); err != nil {
			log.Fatal(err)
		}
		return 0
	},
	"entries": func() int {
		args := build.Args{Manifest: opts.Entries.Manifest}
		loadConfig(&args)
		m, err := manifest.Load(args.Manifest)
		if err != nil {
			log.Fatal(err)
		}
		entries, err := m.Entries()
		if err != nil {
			log.Fatal(err)
		}
		table, err := report.Render(report.EntryTable(entries))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(table)
		return 0
	},
}

func main() {
	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		os.Exit(1)
	}
	if p.Active == nil {
		p.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	logger, err := logging.New(opts.Verbose)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLogger(logger)

	code := subCommands[p.Active.Name]()
	logger.Sync()
	os.Exit(code)
}
