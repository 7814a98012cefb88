package link

import (
	"strings"
	"testing"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/compiler"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/naming"
)

func testUnits() map[string]*compiler.Unit {
	return map[string]*compiler.Unit{
		"content/a.js": {
			ID:      "content/a.js",
			Imports: []string{"chunks/chunk-X.js"},
			Body:    `import { shared } from "../chunks/chunk-X.js";` + "\nshared();\n",
		},
		"chunks/chunk-X.js": {
			ID:      "chunks/chunk-X.js",
			Exports: []string{"shared", "default"},
			Body:    "function shared() {}\nexport { shared, shared as default };\n",
		},
	}
}

func TestLayer_Resolve(t *testing.T) {
	units := testUnits()
	layer := NewLayer(units["content/a.js"], units, naming.New(""))

	tests := []struct {
		ref, importer string
		wantID        string
		wantOK        bool
		wantErr       bool
	}{
		{ref: "content/a.js", importer: "", wantID: "content/a.js", wantOK: true},
		{ref: "chunks/chunk-X.js", importer: "", wantOK: false},
		{ref: "../chunks/chunk-X.js", importer: "content/a.js", wantID: "chunks/chunk-X.js", wantOK: true},
		{ref: "./chunk-X.js", importer: "chunks/chunk-Y.js", wantID: "chunks/chunk-X.js", wantOK: true},
		{ref: "react", importer: "content/a.js", wantOK: false},
		{ref: "../chunks/gone.js", importer: "content/a.js", wantErr: true},
	}
	for _, tt := range tests {
		id, ok, err := layer.Resolve(tt.ref, tt.importer)
		if (err != nil) != tt.wantErr {
			t.Errorf("Resolve(%q, %q) error = %v, wantErr %v", tt.ref, tt.importer, err, tt.wantErr)
			continue
		}
		if ok != tt.wantOK || (ok && id != tt.wantID) {
			t.Errorf("Resolve(%q, %q) = %q, %v; want %q, %v", tt.ref, tt.importer, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestLayer_Load(t *testing.T) {
	units := testUnits()
	names := naming.New("")
	layer := NewLayer(units["content/a.js"], units, names)

	body, ok, err := layer.Load("content/a.js")
	if err != nil || !ok || body != units["content/a.js"].Body {
		t.Errorf("Load(self) = %q, %v, %v; want the unit body", body, ok, err)
	}

	body, ok, err = layer.Load("chunks/chunk-X.js")
	if err != nil || !ok {
		t.Fatalf("Load(dep) = %v, %v", ok, err)
	}
	global := names.Allocate("chunks/chunk-X.js")
	if !strings.Contains(body, "= "+global+";") {
		t.Errorf("dependency module does not read %s:\n%s", global, body)
	}
	if strings.Contains(body, "import") {
		t.Errorf("dependency module must not import anything:\n%s", body)
	}

	if _, ok, _ := layer.Load("chunks/unknown.js"); ok {
		t.Error("Load(unknown) reported ok")
	}
}

func TestGlobalModule(t *testing.T) {
	tests := []struct {
		exports []string
		want    string
	}{
		{nil, "export {};\n"},
		{
			[]string{"a", "b"},
			"const { a: __export0, b: __export1 } = G;\nexport { __export0 as a, __export1 as b };\n",
		},
		{
			[]string{"default", "my-name"},
			"const { default: __export0, \"my-name\": __export1 } = G;\nexport { __export0 as default, __export1 as \"my-name\" };\n",
		},
	}
	for _, tt := range tests {
		if got := GlobalModule("G", tt.exports); got != tt.want {
			t.Errorf("GlobalModule(%v) =\n%s\nwant\n%s", tt.exports, got, tt.want)
		}
	}
}

func TestLayer_ResolveRejectsUnorderedUnits(t *testing.T) {
	units := testUnits()
	units["background.js"] = &compiler.Unit{
		ID:             "background.js",
		DynamicImports: []string{"chunks/lazy.js"},
		Body:           `import("./chunks/lazy.js");` + "\n",
	}
	units["chunks/lazy.js"] = &compiler.Unit{ID: "chunks/lazy.js", Exports: []string{"default"}}
	layer := NewLayer(units["background.js"], units, naming.New(""))

	_, _, err := layer.Resolve("./chunks/lazy.js", "background.js")
	if err == nil || !strings.Contains(err.Error(), "dynamic import") {
		t.Errorf("Resolve(dynamic import) error = %v, want a dynamic import error", err)
	}
	_, _, err = layer.Resolve("./chunks/chunk-X.js", "background.js")
	if err == nil || !strings.Contains(err.Error(), "outside its static imports") {
		t.Errorf("Resolve(undeclared unit) error = %v, want an undeclared import error", err)
	}
}
