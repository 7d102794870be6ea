package transport

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/gemchat/gemchat/pkg/types"
)

// shortName strips the "models/" prefix model names carry upstream.
func shortName(name string) string {
	return strings.TrimPrefix(name, "models/")
}

// ResolveModel maps user input to a known model name. Exact matches win,
// then unique prefix matches, then the closest name by edit distance.
// With no models to match against, the input is returned as-is.
func ResolveModel(input string, models []types.Model) string {
	if len(models) == 0 || input == "" {
		return input
	}
	want := strings.ToLower(shortName(strings.TrimSpace(input)))

	for _, m := range models {
		if strings.ToLower(shortName(m.Name)) == want {
			return shortName(m.Name)
		}
	}

	var prefixed []string
	for _, m := range models {
		if strings.HasPrefix(strings.ToLower(shortName(m.Name)), want) {
			prefixed = append(prefixed, shortName(m.Name))
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0]
	}

	best := shortName(models[0].Name)
	bestDist := levenshtein.ComputeDistance(want, strings.ToLower(best))
	for _, m := range models[1:] {
		name := shortName(m.Name)
		if d := levenshtein.ComputeDistance(want, strings.ToLower(name)); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
