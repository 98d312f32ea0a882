// Package customerid normalizes advertiser account identifiers.
package customerid

import (
	"sort"
	"strings"
)

const resourcePrefix = "customers/"

// Normalize strips any resource-path prefix ("customers/123-456" -> "123456")
// and every non-digit separator.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResourceName renders id as "customers/{id}".
func ResourceName(id string) string {
	return resourcePrefix + id
}

// ResourceNames normalizes, deduplicates and sorts ids, rendering each as a
// resource name. Empty ids are dropped.
func ResourceNames(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := Normalize(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	for i, id := range out {
		out[i] = ResourceName(id)
	}
	return out
}

// Unique normalizes ids preserving first-occurrence order and dropping empties.
func Unique(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := Normalize(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
