package precedents

import (
	"sort"
	"strings"
	"unicode"
)

// Search ranks cases by how many query terms they mention. Only cases from
// the given courts are considered when courts is non-empty.
func Search(query string, courts []string, limit int) []Case {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 5
	}

	allowed := make(map[string]bool, len(courts))
	for _, c := range courts {
		allowed[strings.ToLower(strings.TrimSpace(c))] = true
	}

	type scored struct {
		c     Case
		score int
	}
	var hits []scored
	for _, c := range cases {
		if len(allowed) > 0 && !allowed[strings.ToLower(c.Court)] {
			continue
		}
		haystack := strings.ToLower(c.Title + " " + c.Summary + " " + strings.Join(c.Keywords, " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{c, score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].c.Year > hits[j].c.Year
	})

	out := make([]Case, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].c)
	}
	return out
}

// Lookup finds a section of an act. The act name is matched case-insensitively
// and defaults to the IPC.
func Lookup(act, section string) (Section, bool) {
	act = strings.ToLower(strings.TrimSpace(act))
	if act == "" {
		act = "ipc"
	}
	section = strings.ToUpper(strings.TrimSpace(section))
	for _, s := range sections {
		if strings.ToLower(s.Act) == act && s.Section == section {
			return s, true
		}
	}
	return Section{}, false
}

var stopWords = map[string]bool{
	"the": true, "of": true, "and": true, "for": true, "in": true,
	"on": true, "a": true, "an": true, "to": true, "under": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}
