package planner

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenizeClauses splits a query string into top-level clauses on
// whitespace, treating `"..."` (phrase), `{...}` (tag alternatives),
// `[...]` (numeric range), and `<...>` (Vector-KNN: "<k v1,v2,...>") as
// atomic runs that may embed spaces. A leading `@field:` names the
// clause's field; a leading `-` negates it; a leading `~` marks it
// optional (spec.md §4.6 node kinds).
func tokenizeClauses(query string) ([]clause, error) {
	var clauses []clause
	runes := []rune(strings.TrimSpace(query))
	i := 0
	for i < len(runes) {
		for i < len(runes) && runes[i] == ' ' {
			i++
		}
		if i >= len(runes) {
			break
		}

		var c clause
		for i < len(runes) && (runes[i] == '-' || runes[i] == '~') {
			if runes[i] == '-' {
				c.negate = true
			} else {
				c.optional = true
			}
			i++
		}

		if i < len(runes) && runes[i] == '@' {
			j := i + 1
			for j < len(runes) && runes[j] != ':' {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("planner: unterminated field selector in %q", query)
			}
			c.field = string(runes[i+1 : j])
			i = j + 1
		}

		if i >= len(runes) {
			return nil, fmt.Errorf("planner: trailing field selector with no clause body in %q", query)
		}

		switch runes[i] {
		case '"':
			end := indexRune(runes, i+1, '"')
			if end == -1 {
				return nil, fmt.Errorf("planner: unterminated quote in %q", query)
			}
			c.phrase = strings.Fields(string(runes[i+1 : end]))
			i = end + 1
		case '{':
			end := indexRune(runes, i+1, '}')
			if end == -1 {
				return nil, fmt.Errorf("planner: unterminated tag group in %q", query)
			}
			c.alts = splitNonEmpty(string(runes[i+1:end]), '|')
			i = end + 1
		case '[':
			end := indexRune(runes, i+1, ']')
			if end == -1 {
				return nil, fmt.Errorf("planner: unterminated numeric range in %q", query)
			}
			parts := strings.Fields(string(runes[i+1 : end]))
			if len(parts) != 2 {
				return nil, fmt.Errorf("planner: numeric range needs exactly two bounds in %q", query)
			}
			lo, err := parseFloat(parts[0])
			if err != nil {
				return nil, fmt.Errorf("planner: bad range lower bound: %w", err)
			}
			hi, err := parseFloat(parts[1])
			if err != nil {
				return nil, fmt.Errorf("planner: bad range upper bound: %w", err)
			}
			c.isRange, c.rangeLo, c.rangeHi = true, lo, hi
			i = end + 1
		case '<':
			end := indexRune(runes, i+1, '>')
			if end == -1 {
				return nil, fmt.Errorf("planner: unterminated vector clause in %q", query)
			}
			parts := strings.Fields(string(runes[i+1 : end]))
			if len(parts) != 2 {
				return nil, fmt.Errorf("planner: vector clause needs \"<k v1,v2,...>\" in %q", query)
			}
			k, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, fmt.Errorf("planner: bad vector k in %q: %w", query, err)
			}
			vec, err := parseVectorCSV(parts[1])
			if err != nil {
				return nil, fmt.Errorf("planner: bad vector components in %q: %w", query, err)
			}
			c.isVector, c.vecK, c.vecQuery = true, k, vec
			i = end + 1
		default:
			j := i
			for j < len(runes) && runes[j] != ' ' {
				j++
			}
			c.alts = splitNonEmpty(string(runes[i:j]), '|')
			i = j
		}

		clauses = append(clauses, c)
	}
	return clauses, nil
}

func indexRune(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// parseVectorCSV parses a comma-separated float32 query vector from a
// Vector-KNN clause's body.
func parseVectorCSV(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func splitNonEmpty(s string, sep rune) []string {
	var out []string
	for _, part := range strings.Split(s, string(sep)) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
