// Package company matches retrieved chunks against a company name.
package company

import (
	"sort"
	"strings"

	"github.com/overlordausritter/thematicbeast/internal/domain/query/record"
)

// Variants returns the distinct lowercase forms of name used as match
// candidates: the trimmed name and its spaces encoded as %20, as _, or removed.
// Returned in sorted order.
func Variants(name string) []string {
	base := strings.ToLower(strings.TrimSpace(name))
	if base == "" {
		return nil
	}

	seen := map[string]struct{}{
		base:                                 {},
		strings.ReplaceAll(base, " ", "%20"): {},
		strings.ReplaceAll(base, " ", "_"):   {},
		strings.ReplaceAll(base, " ", ""):    {},
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether any variant occurs in the record's text, file name
// or web URL, case-insensitively. Absent fields count as empty.
func Matches(r record.Record, variants []string) bool {
	fields := [...]string{
		strings.ToLower(r.Text),
		strings.ToLower(r.FileNameOrEmpty()),
		strings.ToLower(r.WebURLOrEmpty()),
	}
	for _, v := range variants {
		for _, f := range fields {
			if strings.Contains(f, v) {
				return true
			}
		}
	}
	return false
}

// Filter returns the records matching any variant, in input order.
// The input slice is not modified.
func Filter(records []record.Record, variants []string) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, variants) {
			out = append(out, r)
		}
	}
	return out
}
