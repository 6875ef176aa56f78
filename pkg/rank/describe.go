package rank

import (
	"encoding/xml"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Describe renders a result as an address-bar description: the label with
// the query's matched characters in <match> and the URL in <url>. Output is
// XML-escaped.
func Describe(r Result, query string) string {
	var sb strings.Builder

	label := r.Label()
	highlight(&sb, label, matchedOffsets(strings.TrimSpace(query), label))

	if r.Title != "" && r.URL != "" {
		sb.WriteString(" <dim>-</dim> <url>")
		escape(&sb, r.URL)
		sb.WriteString("</url>")
	}
	if r.IsHistory {
		sb.WriteString(" <dim>(history)</dim>")
	}
	return sb.String()
}

func matchedOffsets(query, label string) map[int]bool {
	if query == "" || label == "" {
		return nil
	}
	matches := fuzzy.Find(query, []string{label})
	if len(matches) == 0 {
		return nil
	}
	set := make(map[int]bool, len(matches[0].MatchedIndexes))
	for _, i := range matches[0].MatchedIndexes {
		set[i] = true
	}
	return set
}

func highlight(sb *strings.Builder, s string, matched map[int]bool) {
	open := false
	for i, r := range s {
		hit := matched[i]
		if hit && !open {
			sb.WriteString("<match>")
			open = true
		} else if !hit && open {
			sb.WriteString("</match>")
			open = false
		}
		escape(sb, string(r))
	}
	if open {
		sb.WriteString("</match>")
	}
}

func escape(sb *strings.Builder, s string) {
	_ = xml.EscapeText(sb, []byte(s))
}
