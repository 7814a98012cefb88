package common

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func bundle(t *testing.T, entry string, plugins ...api.Plugin) string {
	t.Helper()
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      true,
		Write:       false,
		Platform:    api.PlatformBrowser,
		Format:      api.FormatESModule,
		LogLevel:    api.LogLevelSilent,
		Plugins:     plugins,
	})
	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		t.Fatalf("build errors: %s", strings.Join(msgs, "; "))
	}
	if len(result.OutputFiles) == 0 {
		t.Fatal("expected output files, got none")
	}
	return string(result.OutputFiles[0].Contents)
}

func TestParseModuleConfig(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "moduleconfig")
	writeFile(t, path, "# deps\nwebextension-polyfill = third_party/js/polyfill\n\n@scope/pkg=out/pkg\nbroken line\n")

	got, err := ParseModuleConfig(path)
	if err != nil {
		t.Fatalf("ParseModuleConfig: %v", err)
	}
	want := map[string]string{
		"webextension-polyfill": "third_party/js/polyfill",
		"@scope/pkg":            "out/pkg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseModuleConfig = %v, want %v", got, want)
	}
}

func TestParseModuleConfig_Missing(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "nope")} {
		got, err := ParseModuleConfig(path)
		if err != nil {
			t.Errorf("ParseModuleConfig(%q): %v", path, err)
		}
		if len(got) != 0 {
			t.Errorf("ParseModuleConfig(%q) = %v, want empty", path, got)
		}
	}
}

func TestMatchModule(t *testing.T) {
	moduleMap := map[string]string{
		"lit":        "/m/lit",
		"lit-html":   "/m/lit-html",
		"@scope/pkg": "/m/scope-pkg",
	}
	tests := []struct {
		path, wantName, wantDir string
	}{
		{"lit", "lit", "/m/lit"},
		{"lit/decorators.js", "lit", "/m/lit"},
		{"lit-html", "lit-html", "/m/lit-html"},
		{"@scope/pkg/sub", "@scope/pkg", "/m/scope-pkg"},
		{"litx", "", ""},
		{"@scope", "", ""},
	}
	for _, tt := range tests {
		name, dir := matchModule(moduleMap, tt.path)
		if name != tt.wantName || dir != tt.wantDir {
			t.Errorf("matchModule(%q) = %q, %q; want %q, %q", tt.path, name, dir, tt.wantName, tt.wantDir)
		}
	}
}

func TestModuleResolvePlugin(t *testing.T) {
	tmp := t.TempDir()
	pkg := filepath.Join(tmp, "out", "greet")
	writeFile(t, filepath.Join(pkg, "package.json"), `{"name": "greet", "main": "./main.js"}`)
	writeFile(t, filepath.Join(pkg, "main.js"), `export const greeting = "hello from greet";`+"\n")
	writeFile(t, filepath.Join(pkg, "extra.js"), `export const extra = "extra from greet";`+"\n")

	entry := filepath.Join(tmp, "src", "content.js")
	writeFile(t, entry, `import { greeting } from "greet";`+"\n"+
		`import { extra } from "greet/extra.js";`+"\n"+
		`console.log(greeting, extra);`+"\n")

	output := bundle(t, entry, ModuleResolvePlugin(map[string]string{"greet": pkg}))
	for _, want := range []string{"hello from greet", "extra from greet"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestModuleResolvePlugin_ExportsFallback(t *testing.T) {
	tmp := t.TempDir()
	pkg := filepath.Join(tmp, "out", "ui")
	writeFile(t, filepath.Join(pkg, "package.json"),
		`{"name": "ui", "exports": {".": "./index.js", "./widgets": {"browser": "./dist/widgets.browser.js"}}}`)
	writeFile(t, filepath.Join(pkg, "index.js"), `export const root = 1;`+"\n")
	writeFile(t, filepath.Join(pkg, "dist", "widgets.browser.js"), `export const widget = "browser widget";`+"\n")

	entry := filepath.Join(tmp, "src", "popup.js")
	writeFile(t, entry, `import { widget } from "ui/widgets";`+"\n"+`console.log(widget);`+"\n")

	output := bundle(t, entry, ModuleResolvePlugin(map[string]string{"ui": pkg}))
	if !strings.Contains(output, "browser widget") {
		t.Errorf("expected the browser export of ui/widgets:\n%s", output)
	}
}

func TestModuleResolvePlugin_SkipsHashImports(t *testing.T) {
	tmp := t.TempDir()
	pkg := filepath.Join(tmp, "pkg")
	writeFile(t, filepath.Join(pkg, "package.json"), `{
		"name": "mypkg",
		"main": "index.js",
		"imports": { "#util": "./util.js" }
	}`)
	writeFile(t, filepath.Join(pkg, "index.js"), `export { hello } from "#util";`+"\n")
	writeFile(t, filepath.Join(pkg, "util.js"), `export const hello = "world";`+"\n")

	output := bundle(t, filepath.Join(pkg, "index.js"), ModuleResolvePlugin(map[string]string{"mypkg": pkg}))
	if strings.Contains(output, `"#util"`) {
		t.Errorf("output still contains unresolved #util import:\n%s", output)
	}
	if !strings.Contains(output, "world") {
		t.Errorf("expected resolved value 'world' in output:\n%s", output)
	}
}

func TestRawImportPlugin(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "banner.html"), "<div class=banner>hi</div>")
	entry := filepath.Join(tmp, "content.js")
	writeFile(t, entry, `import banner from "./banner.html?raw";`+"\n"+`document.body.innerHTML = banner;`+"\n")

	output := bundle(t, entry, RawImportPlugin())
	if !strings.Contains(output, "<div class=banner>hi</div>") {
		t.Errorf("expected raw file contents in output:\n%s", output)
	}
}

func TestParseDefines(t *testing.T) {
	got := ParseDefines([]string{
		`__DEV__=false`,
		` API = "https://example.com/?a=b"`,
		`noequals`,
		`=orphan`,
	})
	want := map[string]string{
		"__DEV__": "false",
		"API":     ` "https://example.com/?a=b"`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDefines = %v, want %v", got, want)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    api.Target
		wantErr bool
	}{
		{"", api.ESNext, false},
		{"esnext", api.ESNext, false},
		{"ES2020", api.ES2020, false},
		{"es5", api.ES5, false},
		{"es1999", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTarget(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTarget(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadEnvFiles(t *testing.T) {
	tmp := t.TempDir()
	base := filepath.Join(tmp, ".env")
	writeFile(t, base, "EXT_API=https://base\nEXT_NAME='Base'\nSECRET=nope\n# EXT_COMMENT=x\n")
	writeFile(t, base+".local", "export EXT_NAME=\"Local\"\n")
	writeFile(t, base+".production", "EXT_API=https://prod\n")

	got, err := LoadEnvFiles(base, "production", "EXT_")
	if err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	want := map[string]string{
		"import.meta.env.EXT_API":  `"https://prod"`,
		"import.meta.env.EXT_NAME": `"Local"`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadEnvFiles = %v, want %v", got, want)
	}
}

func TestMergeEnvDefines(t *testing.T) {
	define := map[string]string{"process.env.NODE_ENV": `"test"`}
	MergeEnvDefines(define, "production")
	if define["import.meta.env.MODE"] != `"production"` {
		t.Errorf("MODE = %s", define["import.meta.env.MODE"])
	}
	if define["process.env.NODE_ENV"] != `"test"` {
		t.Errorf("NODE_ENV overwritten: %s", define["process.env.NODE_ENV"])
	}
}
