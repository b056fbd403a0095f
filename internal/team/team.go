// Package team canonicalizes team compositions into comparable signatures.
//
// Two signatures exist for every team. The strict signature preserves the
// given slot order, so the same five units in a different formation count as
// a different matchup. The smart signature treats special units (IDs whose
// decimal form starts with '2') as interchangeable: non-specials keep their
// order, specials are appended in ascending numeric order. Compositions that
// differ only in special assignment order collapse to one smart signature.
package team

import (
	"sort"
	"strconv"
	"strings"
)

// Signatures returns the strict and smart signature for a team. An empty
// team yields two empty signatures.
func Signatures(team []int) (strict, smart string) {
	if len(team) == 0 {
		return "", ""
	}

	parts := make([]string, len(team))
	for i, id := range team {
		parts[i] = strconv.Itoa(id)
	}
	strict = strings.Join(parts, ",")

	var main, specials []int
	for _, id := range team {
		if isSpecial(strconv.Itoa(id)) {
			specials = append(specials, id)
		} else {
			main = append(main, id)
		}
	}
	sort.Ints(specials)

	out := make([]string, 0, len(team))
	for _, id := range main {
		out = append(out, strconv.Itoa(id))
	}
	for _, id := range specials {
		out = append(out, strconv.Itoa(id))
	}
	smart = strings.Join(out, ",")
	return strict, smart
}

// Smarten coarsens an already-serialized strict signature. It is used where
// only the stored signature is available, not the team list. Non-numeric
// tokens sort lexicographically among the specials.
func Smarten(sig string) string {
	if sig == "" {
		return ""
	}

	var main, specials []string
	for _, p := range strings.Split(sig, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if isSpecial(p) {
			specials = append(specials, p)
		} else {
			main = append(main, p)
		}
	}

	sort.Slice(specials, func(i, j int) bool {
		a, errA := strconv.Atoi(specials[i])
		b, errB := strconv.Atoi(specials[j])
		if errA != nil || errB != nil {
			return specials[i] < specials[j]
		}
		return a < b
	})

	return strings.Join(append(main, specials...), ",")
}

func isSpecial(id string) bool {
	return strings.HasPrefix(id, "2")
}
