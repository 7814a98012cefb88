package manifest

import "encoding/json"

// CleanOptions controls Clean.
type CleanOptions struct {
	// TargetPlatform is the browser_specific_settings key to keep, e.g. "gecko".
	TargetPlatform string
	// WriteAllBrowserSpecificSettings keeps every platform's settings.
	WriteAllBrowserSpecificSettings bool
	// GeckoIncognitoSplitSubstitute replaces incognito "split" when targeting
	// gecko, which does not support it. Empty disables the replacement.
	GeckoIncognitoSplitSubstitute string
}

// Clean strips settings for other platforms and substitutes the incognito
// mode on gecko. doc is modified in place and returned.
func Clean(doc map[string]interface{}, opts CleanOptions) map[string]interface{} {
	if settings, ok := doc["browser_specific_settings"]; ok && settings != nil && !opts.WriteAllBrowserSpecificSettings {
		bss, _ := settings.(map[string]interface{})
		if target := bss[opts.TargetPlatform]; truthy(target) {
			doc["browser_specific_settings"] = map[string]interface{}{
				opts.TargetPlatform: target,
			}
		} else {
			delete(doc, "browser_specific_settings")
		}
	}

	// https://bugzilla.mozilla.org/show_bug.cgi?id=1380812
	if opts.GeckoIncognitoSplitSubstitute != "" && doc["incognito"] == "split" && opts.TargetPlatform == "gecko" {
		doc["incognito"] = opts.GeckoIncognitoSplitSubstitute
	}
	return doc
}

// Clean applies Clean to the manifest document.
func (m *Manifest) Clean(opts CleanOptions) {
	m.Doc = Clean(m.Doc, opts)
}

// truthy reports whether a decoded JSON value counts as set: null, false, 0
// and "" do not.
func truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case float64:
		return v != 0
	}
	return true
}
