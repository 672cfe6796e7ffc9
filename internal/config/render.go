package config

import (
	"fmt"
	"strconv"
	"strings"
)

const renderHeader = "# diarychain configuration (TOML)"

type optionSection struct {
	name string
	opts []ConfigOption
}

// splitSections groups dotted keys under their first segment. Option order
// within a section and section order follow opts.
func splitSections(opts []ConfigOption) ([]ConfigOption, []optionSection) {
	var top []ConfigOption
	var sections []optionSection
	index := map[string]int{}
	for _, o := range opts {
		section, key, dotted := strings.Cut(o.Key, ".")
		if !dotted {
			top = append(top, o)
			continue
		}
		i, ok := index[section]
		if !ok {
			i = len(sections)
			index[section] = i
			sections = append(sections, optionSection{name: section})
		}
		sections[i].opts = append(sections[i].opts, ConfigOption{Key: key, Default: o.Default, Comment: o.Comment})
	}
	return top, sections
}

// RenderDefaultTOML renders a TOML config with defaults from GetConfigOptions.
func RenderDefaultTOML() string {
	top, sections := splitSections(GetConfigOptions())
	lines := []string{renderHeader}
	for _, o := range top {
		writeTOMLOptionLines(&lines, o.Key, o.Default, o.Comment)
	}
	for _, s := range sections {
		lines = append(lines, "["+s.name+"]")
		for _, o := range s.opts {
			writeTOMLOptionLines(&lines, o.Key, o.Default, o.Comment)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// UpdateTOML appends options missing from existing and comments out keys the
// schema no longer knows. Values already present are left untouched.
func UpdateTOML(existing string) (string, bool) {
	known := make(map[string]bool)
	for _, o := range GetConfigOptions() {
		known[o.Key] = true
	}

	present := make(map[string]bool)
	section := ""
	lines := strings.Split(existing, "\n")
	out := make([]string, 0, len(lines))
	changed := false
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if isSectionHeader(trim) {
			section = strings.TrimSpace(trim[1 : len(trim)-1])
			out = append(out, line)
			continue
		}
		key, ok := parseTOMLKey(trim)
		if !ok {
			out = append(out, line)
			continue
		}
		if section != "" {
			key = section + "." + key
		}
		present[key] = true
		if !known[key] {
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			out = append(out, indent+"# OUTDATED: option removed from config schema", indent+"# "+trim)
			changed = true
			continue
		}
		out = append(out, line)
	}

	var missing []ConfigOption
	for _, o := range GetConfigOptions() {
		if !present[o.Key] {
			missing = append(missing, o)
		}
	}
	if len(missing) == 0 {
		return strings.Join(out, "\n"), changed
	}

	top, sections := splitSections(missing)
	out = append(out, "", "# Added by config update")
	for _, o := range top {
		writeTOMLOptionLines(&out, o.Key, o.Default, o.Comment)
	}
	for _, s := range sections {
		out = append(out, "["+s.name+"]")
		for _, o := range s.opts {
			writeTOMLOptionLines(&out, o.Key, o.Default, o.Comment)
		}
	}
	return strings.Join(out, "\n"), true
}

// parseTOMLKey returns the bare key of a `key = value` line.
func parseTOMLKey(trim string) (string, bool) {
	if trim == "" || strings.HasPrefix(trim, "#") {
		return "", false
	}
	key, _, ok := strings.Cut(trim, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" || strings.ContainsAny(key[:1], "[\"'") {
		return "", false
	}
	return key, true
}

func tomlValue(value any) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case []string:
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

func writeTOMLOptionLines(lines *[]string, key string, value any, comment string) {
	if comment != "" {
		*lines = append(*lines, "# "+comment)
	}
	*lines = append(*lines, key+" = "+tomlValue(value), "")
}
