package ingestion

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

// ExtractArticleText pulls readable text out of article HTML. Boilerplate
// containers (nav, scripts, styles) are removed before extraction; block
// elements become paragraph breaks so chunking sees real boundaries.
func ExtractArticleText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errs.Wrap(errs.ErrExtraction, err)
	}

	doc.Find("script, style, nav, header, footer, aside, noscript, iframe").Remove()

	root := doc.Find("article")
	if root.Length() == 0 {
		root = doc.Find("main")
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var b strings.Builder
	root.Find("h1, h2, h3, h4, p, li, pre, blockquote").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})

	text := strings.TrimSpace(b.String())
	if text == "" {
		// Some pages carry bare text without block markup.
		text = strings.TrimSpace(root.Text())
	}
	if text == "" {
		return "", errs.Wrapf(errs.ErrExtraction, "article contains no extractable text")
	}
	return text, nil
}
