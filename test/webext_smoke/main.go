package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/build"
)

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}

func writeFiles(dir string, files map[string]string) {
	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			fail("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			fail("write %s: %v", name, err)
		}
	}
}

func main() {
	tmpDir, err := os.MkdirTemp("", "webext-smoke")
	if err != nil {
		fail("%v", err)
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "src")
	pkg := filepath.Join(tmpDir, "third_party", "greet")
	writeFiles(tmpDir, map[string]string{
		"src/manifest.json": `{
  "manifest_version": 2,
  "name": "smoke",
  "version": "0.1.0",
  "content_scripts": [
    {"matches": ["https://*/*"], "js": ["content.ts"]},
    {"matches": ["https://example.com/*"], "js": ["widget.ts", "content.ts"]}
  ],
  "background": {"scripts": ["background.ts"]}
}`,
		"src/content.ts": `import { greet } from "greet";
import { log } from "./lib/log";
log(greet("content"), __BUILD__);
`,
		"src/widget.ts": `import { log } from "./lib/log";
import template from "./widget.html?raw";
log(template, import.meta.env.EXT_API);
`,
		"src/background.ts": `import manifest from "webext:manifest";
import { log } from "./lib/log";
log(manifest.version);
`,
		"src/lib/log.ts":     "export function log(...args: unknown[]): void { console.log(\"[smoke]\", ...args); }\n",
		"src/widget.html":    "<aside id=smoke-widget></aside>",
		"src/.env":           "EXT_API=https://api.example.com\nOTHER=hidden\n",
		"moduleconfig":       "greet=" + pkg + "\n",
		"third_party/greet/package.json": `{"name": "greet", "exports": {".": {"browser": "./browser.js", "default": "./node.js"}}}`,
		"third_party/greet/browser.js":   "export const greet = (who) => `hello ${who} from the browser build`;\n",
		"third_party/greet/node.js":      "export const greet = (who) => `hello ${who} from node`;\n",
	})

	outDir := filepath.Join(tmpDir, "out")
	res, err := build.Run(context.Background(), build.Args{
		Manifest:       filepath.Join(src, "manifest.json"),
		OutDir:         outDir,
		TargetPlatform: "chrome",
		ModuleConfig:   filepath.Join(tmpDir, "moduleconfig"),
		Define:         []string{"__BUILD__=\"smoke\""},
		EnvFile:        filepath.Join(src, ".env"),
		Target:         "es2017",
		Indent:         "\t",
	})
	if err != nil {
		fail("build: %v", err)
	}
	fmt.Println("  PASS: test 1: build succeeded")

	// --- Test 2: every script list is dependency ordered ---

	data, err := os.ReadFile(filepath.Join(outDir, "manifest.json"))
	if err != nil {
		fail("read manifest: %v", err)
	}
	var doc struct {
		ContentScripts []struct {
			JS []string `json:"js"`
		} `json:"content_scripts"`
		Background struct {
			Scripts []string `json:"scripts"`
		} `json:"background"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		fail("parse manifest: %v", err)
	}
	lists := [][]string{doc.Background.Scripts}
	for _, cs := range doc.ContentScripts {
		lists = append(lists, cs.JS)
	}
	for _, list := range lists {
		pos := map[string]int{}
		for i, id := range list {
			if _, dup := pos[id]; dup {
				fail("test 2: %s listed twice in %v", id, list)
			}
			pos[id] = i
		}
		for _, id := range list {
			for _, dep := range res.Units[id].Imports {
				if p, ok := pos[dep]; !ok || p > pos[id] {
					fail("test 2: %s must be loaded before %s in %v", dep, id, list)
				}
			}
		}
	}
	fmt.Println("  PASS: test 2: scripts load after their dependencies")

	// --- Test 3: stage-one extensions reached the output ---

	var all strings.Builder
	for _, u := range res.Units {
		all.WriteString(u.Body)
	}
	output := all.String()
	for _, want := range []string{
		"from the browser build",
		"smoke-widget",
		"https://api.example.com",
		`"smoke"`,
		"runtime.getManifest()",
	} {
		if !strings.Contains(output, want) {
			fail("test 3: expected %q in the compiled scripts", want)
		}
	}
	if strings.Contains(output, "from node") || strings.Contains(output, "hidden") {
		fail("test 3: node entry or unprefixed env variable leaked into the output")
	}
	fmt.Println("  PASS: test 3: module config, ?raw, defines and env reached the output")

	// --- Test 4: no module syntax is left ---

	for id, u := range res.Units {
		if strings.Contains(u.Body, "import ") || strings.Contains(u.Body, "export {") {
			fail("test 4: %s still uses module syntax", id)
		}
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(id))); err != nil {
			fail("test 4: %s not written: %v", id, err)
		}
	}
	fmt.Println("  PASS: test 4: every unit is a plain script")

	fmt.Println("PASS: all webext smoke tests passed")
}
