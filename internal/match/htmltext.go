package match

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeHTML strips markup from a feed summary and collapses
// whitespace so matching operates on plain text. Input that fails to
// parse as HTML is returned with whitespace collapsed.
func NormalizeHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
