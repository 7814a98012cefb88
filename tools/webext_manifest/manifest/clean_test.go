package manifest

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	defaults := CleanOptions{
		TargetPlatform:                "gecko",
		GeckoIncognitoSplitSubstitute: "not_allowed",
	}
	tests := []struct {
		name string
		doc  map[string]interface{}
		opts CleanOptions
		want map[string]interface{}
	}{
		{
			name: "empty",
			doc:  map[string]interface{}{},
			opts: defaults,
			want: map[string]interface{}{},
		},
		{
			name: "keeps target platform settings",
			doc: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{
					"gecko":  map[string]interface{}{"id": "x"},
					"chrome": map[string]interface{}{"id": "y"},
				},
			},
			opts: defaults,
			want: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{
					"gecko": map[string]interface{}{"id": "x"},
				},
			},
		},
		{
			name: "drops settings without target platform",
			doc: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{
					"chrome": map[string]interface{}{"id": "y"},
				},
			},
			opts: defaults,
			want: map[string]interface{}{},
		},
		{
			name: "drops falsy target platform settings",
			doc: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{
					"gecko":  false,
					"chrome": map[string]interface{}{"id": "y"},
				},
			},
			opts: defaults,
			want: map[string]interface{}{},
		},
		{
			name: "drops null target platform settings",
			doc: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{"gecko": nil},
			},
			opts: defaults,
			want: map[string]interface{}{},
		},
		{
			name: "keeps empty object target platform settings",
			doc: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{"gecko": map[string]interface{}{}},
			},
			opts: defaults,
			want: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{"gecko": map[string]interface{}{}},
			},
		},
		{
			name: "write all settings",
			doc: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{
					"gecko":  map[string]interface{}{"id": "x"},
					"chrome": map[string]interface{}{"id": "y"},
				},
			},
			opts: CleanOptions{TargetPlatform: "gecko", WriteAllBrowserSpecificSettings: true},
			want: map[string]interface{}{
				"browser_specific_settings": map[string]interface{}{
					"gecko":  map[string]interface{}{"id": "x"},
					"chrome": map[string]interface{}{"id": "y"},
				},
			},
		},
		{
			name: "incognito split on gecko",
			doc:  map[string]interface{}{"incognito": "split"},
			opts: defaults,
			want: map[string]interface{}{"incognito": "not_allowed"},
		},
		{
			name: "incognito substitute disabled",
			doc:  map[string]interface{}{"incognito": "split"},
			opts: CleanOptions{TargetPlatform: "gecko"},
			want: map[string]interface{}{"incognito": "split"},
		},
		{
			name: "incognito split on chrome",
			doc:  map[string]interface{}{"incognito": "split"},
			opts: CleanOptions{TargetPlatform: "chrome", GeckoIncognitoSplitSubstitute: "not_allowed"},
			want: map[string]interface{}{"incognito": "split"},
		},
		{
			name: "other incognito modes untouched",
			doc:  map[string]interface{}{"incognito": "spanning"},
			opts: defaults,
			want: map[string]interface{}{"incognito": "spanning"},
		},
		{
			name: "other fields untouched",
			doc:  map[string]interface{}{"name": "ext", "permissions": []interface{}{"tabs"}},
			opts: defaults,
			want: map[string]interface{}{"name": "ext", "permissions": []interface{}{"tabs"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.doc, tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Clean() = %v, want %v", got, tt.want)
			}
			if reflect.ValueOf(got).Pointer() != reflect.ValueOf(tt.doc).Pointer() {
				t.Error("Clean() must modify and return the same map")
			}
		})
	}
}

func TestClean_FalsySettings(t *testing.T) {
	for _, value := range []string{`false`, `0`, `0.0`, `""`, `null`} {
		m, err := Parse([]byte(`{"browser_specific_settings": {"gecko": `+value+`}}`), "/ext")
		if err != nil {
			t.Fatalf("Parse(%s): %v", value, err)
		}
		m.Clean(CleanOptions{TargetPlatform: "gecko"})
		if _, ok := m.Doc["browser_specific_settings"]; ok {
			t.Errorf("gecko: %s kept browser_specific_settings = %v", value, m.Doc["browser_specific_settings"])
		}
	}
	m, err := Parse([]byte(`{"browser_specific_settings": {"gecko": 1}}`), "/ext")
	if err != nil {
		t.Fatal(err)
	}
	m.Clean(CleanOptions{TargetPlatform: "gecko"})
	if _, ok := m.Doc["browser_specific_settings"]; !ok {
		t.Error("gecko: 1 dropped browser_specific_settings")
	}
}
