package process

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ExtractText returns the visible text of an HTML document with whitespace
// collapsed.
func ExtractText(body io.Reader) (string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	extractTextNodes(doc, &sb)

	return CollapseSpace(sb.String()), nil
}

func extractTextNodes(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "head", "script", "style", "noscript", "iframe", "svg", "template":
			return
		}
		if hidden(n) {
			return
		}
	}

	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextNodes(c, sb)
	}
}

func hidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if attr.Val == "true" {
				return true
			}
		}
	}
	return false
}

// CollapseSpace folds every whitespace run into a single space and trims.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clip collapses whitespace and cuts s to at most limit runes. A limit <= 0
// yields "".
func Clip(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = CollapseSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}
