// Package manifest reads, rewrites and writes browser extension manifests.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrLoad is returned (wrapped) when the manifest cannot be read or parsed.
var ErrLoad = errors.New("failed to load manifest")

// Field names the manifest field an entry point was declared in.
type Field string

const (
	FieldContentScript Field = "content_script"
	FieldBackground    Field = "background"
)

// Entry is a script referenced by the manifest.
type Entry struct {
	// Path is the absolute location of the script.
	Path string
	// Rel is the path as written in the manifest.
	Rel   string
	Field Field
	// Group is the index into content_scripts, or -1 for background scripts.
	Group int
}

// Manifest is a parsed manifest document. Doc keeps every field of the
// original so that untouched fields survive a rewrite.
type Manifest struct {
	Path string
	Dir  string
	Doc  map[string]interface{}
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	m, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	m.Path = abs
	return m, nil
}

// Parse parses manifest JSON. Relative script paths are later resolved
// against dir.
func Parse(data []byte, dir string) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: manifest is not a JSON object", ErrLoad)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after the manifest object", ErrLoad)
	}
	return &Manifest{Dir: dir, Doc: doc}, nil
}

// Entries lists every content script, group by group in declared order,
// followed by every background script. Missing fields yield no entries.
func (m *Manifest) Entries() ([]Entry, error) {
	var entries []Entry
	for i, group := range m.contentScriptGroups() {
		scripts, err := stringList(group["js"], fmt.Sprintf("content_scripts[%d].js", i))
		if err != nil {
			return nil, err
		}
		for _, rel := range scripts {
			entries = append(entries, m.entry(rel, FieldContentScript, i))
		}
	}
	scripts, err := stringList(m.backgroundScripts(), "background.scripts")
	if err != nil {
		return nil, err
	}
	for _, rel := range scripts {
		entries = append(entries, m.entry(rel, FieldBackground, -1))
	}
	return entries, nil
}

func (m *Manifest) entry(rel string, field Field, group int) Entry {
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.Dir, filepath.FromSlash(rel))
	}
	return Entry{Path: path, Rel: rel, Field: field, Group: group}
}

func (m *Manifest) contentScriptGroups() []map[string]interface{} {
	raw, _ := m.Doc["content_scripts"].([]interface{})
	groups := make([]map[string]interface{}, 0, len(raw))
	for _, g := range raw {
		if group, ok := g.(map[string]interface{}); ok {
			groups = append(groups, group)
		} else {
			groups = append(groups, map[string]interface{}{})
		}
	}
	return groups
}

func (m *Manifest) background() map[string]interface{} {
	bg, _ := m.Doc["background"].(map[string]interface{})
	return bg
}

func (m *Manifest) backgroundScripts() interface{} {
	if bg := m.background(); bg != nil {
		return bg["scripts"]
	}
	return nil
}

func stringList(v interface{}, field string) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a list of script paths", field)
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a string", field, i)
		}
		out = append(out, s)
	}
	return out, nil
}

func toList(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Marshal serializes the manifest the way JSON.stringify(doc, null, indent)
// would, except that object keys come out sorted.
func (m *Manifest) Marshal(indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(m.Doc); err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// maxIndent is the indent width cap JSON.stringify applies.
const maxIndent = 10

// ParseIndent turns an indent option into the literal indent string: a
// number means that many spaces, anything else is used as-is. Both are
// capped at ten characters.
func ParseIndent(s string) string {
	if s == "" {
		return ""
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			n = 0
		}
		if n > maxIndent {
			n = maxIndent
		}
		return strings.Repeat(" ", n)
	}
	if utf8.RuneCountInString(s) > maxIndent {
		return string([]rune(s)[:maxIndent])
	}
	return s
}
