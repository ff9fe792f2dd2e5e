package news

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetRunes = 280

// CleanText strips markup from an HTML fragment, drops scripts and styles,
// collapses whitespace and truncates to maxSnippetRunes.
func CleanText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	text := fragment
	if strings.ContainsAny(fragment, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err == nil {
			doc.Find("script, style, noscript").Remove()
			text = doc.Text()
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	return truncateRunes(text, maxSnippetRunes)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
