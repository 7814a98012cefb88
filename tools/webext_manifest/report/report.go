// Package report renders build results for the terminal.
package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/becomeliminal/webext-rules/tools/webext_manifest/build"
	"github.com/becomeliminal/webext-rules/tools/webext_manifest/manifest"
)

var (
	SuccessStyle = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	InfoColor    = pterm.FgLightGreen
)

// ScriptTable lists every rewritten script in load order, one row per script,
// with the global variable it registers.
func ScriptTable(res *build.Result) pterm.TableData {
	fields := make([]string, 0, len(res.Scripts))
	for field := range res.Scripts {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	data := pterm.TableData{{"Field", "#", "Script", "Global"}}
	for _, field := range fields {
		for i, id := range res.Scripts[field] {
			data = append(data, []string{field, strconv.Itoa(i), id, res.Bindings[id]})
		}
	}
	return data
}

// EntryTable lists manifest entry points in extraction order.
func EntryTable(entries []manifest.Entry) pterm.TableData {
	data := pterm.TableData{{"Field", "Group", "Script", "Path"}}
	for _, e := range entries {
		group := "-"
		if e.Field == manifest.FieldContentScript {
			group = strconv.Itoa(e.Group)
		}
		data = append(data, []string{string(e.Field), group, e.Rel, e.Path})
	}
	return data
}

// Render formats a table with a header row.
func Render(data pterm.TableData) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// Summary renders the outcome of a build: a banner line and the script table.
func Summary(res *build.Result, outDir string) (string, error) {
	table, err := Render(ScriptTable(res))
	if err != nil {
		return "", err
	}
	banner := SuccessStyle.Sprint(" BUILT ") + " " +
		InfoColor.Sprint(fmt.Sprintf("%d units to %s", len(res.Units), outDir))
	return banner + "\n" + table, nil
}
