package common

import "strings"

// Dedupe drops empty and repeated entries, keeping first occurrences in order.
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// FirstNonEmpty returns the first non-blank value of lookup over keys.
func FirstNonEmpty(lookup func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(lookup(k)); v != "" {
			return v
		}
	}
	return ""
}

// SplitList splits a separated list, trimming blanks and dropping empty items.
func SplitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
