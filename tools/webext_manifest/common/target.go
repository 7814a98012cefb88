package common

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var targets = map[string]api.Target{
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
}

// ParseTarget converts a target string to an esbuild Target constant.
// "" and "esnext" → api.ESNext
// "ES2020" → api.ES2020
func ParseTarget(t string) (api.Target, error) {
	if t == "" {
		return api.ESNext, nil
	}
	target, ok := targets[strings.ToLower(t)]
	if !ok {
		return 0, fmt.Errorf("unknown target %q", t)
	}
	return target, nil
}
