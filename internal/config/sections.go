package config

import (
	"sort"
	"strings"
)

// UpsertSectionConfig inserts or replaces a [<section>] block, keeping
// every other line of existing untouched.
func UpsertSectionConfig(existing, section string, values map[string]any) (string, bool) {
	header := "[" + section + "]"
	lines := strings.Split(existing, "\n")
	out := make([]string, 0, len(lines)+8)
	replaced := false

	for i := 0; i < len(lines); {
		line := lines[i]
		trim := strings.TrimSpace(line)
		if trim == header {
			out = append(out, line)
			appendSectionOptions(&out, values)
			replaced = true
			i++
			for i < len(lines) {
				next := strings.TrimSpace(lines[i])
				if isSectionHeader(next) {
					break
				}
				i++
			}
			continue
		}
		out = append(out, line)
		i++
	}

	if !replaced {
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, "# Added by diarychain", header)
		appendSectionOptions(&out, values)
	}

	return strings.Join(out, "\n"), true
}

// DeleteSectionConfig removes a [<section>] block if present.
func DeleteSectionConfig(existing, section string) (string, bool) {
	header := "[" + section + "]"
	lines := strings.Split(existing, "\n")
	out := make([]string, 0, len(lines))
	removed := false

	for i := 0; i < len(lines); {
		line := lines[i]
		trim := strings.TrimSpace(line)
		if trim == header {
			removed = true
			i++
			for i < len(lines) {
				next := strings.TrimSpace(lines[i])
				if isSectionHeader(next) {
					break
				}
				i++
			}
			continue
		}
		out = append(out, line)
		i++
	}

	return strings.Join(out, "\n"), removed
}

func appendSectionOptions(out *[]string, values map[string]any) {
	for _, key := range sectionOptionOrder(values) {
		writeTOMLOptionLines(out, key, values[key], "")
	}
}

// Known keys first in a fixed order, the rest sorted.
func sectionOptionOrder(values map[string]any) []string {
	pref := []string{"provider", "id", "value", "backend", "path"}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, k := range pref {
		if _, ok := values[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(values))
	for k := range values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func isSectionHeader(trim string) bool {
	if trim == "" || strings.HasPrefix(trim, "#") || strings.HasPrefix(trim, ";") {
		return false
	}
	return strings.HasPrefix(trim, "[") && strings.HasSuffix(trim, "]")
}
