// internal/extract/text.go
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// TextLines returns the trimmed, non-empty text lines of a document in
// document order, NFKC-normalized with runs of whitespace collapsed.
func TextLines(doc *goquery.Document) []string {
	var lines []string
	for _, n := range doc.Nodes {
		collectText(n, &lines)
	}
	return lines
}

// Text joins TextLines with newlines.
func Text(doc *goquery.Document) string {
	return strings.Join(TextLines(doc), "\n")
}

// NormalizeLine collapses whitespace after NFKC normalization, so that
// no-break spaces match \s in later scans.
func NormalizeLine(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func collectText(n *html.Node, lines *[]string) {
	switch n.Type {
	case html.TextNode:
		for _, raw := range strings.Split(n.Data, "\n") {
			if line := NormalizeLine(raw); line != "" {
				*lines = append(*lines, line)
			}
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

// selectionText returns the trimmed, whitespace-collapsed text of s.
func selectionText(s *goquery.Selection) string {
	return NormalizeLine(s.Text())
}
