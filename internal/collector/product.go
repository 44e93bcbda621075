package collector

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// productImageXPaths are tried in order; the first usable src wins.
var productImageXPaths = []string{
	`//*[contains(concat(' ', normalize-space(@class), ' '), ' stamped-product-image ')]//img`,
	`//*[contains(concat(' ', normalize-space(@class), ' '), ' product-image ')]//img`,
	`//*[contains(concat(' ', normalize-space(@class), ' '), ' product__media ')]//img`,
}

// ProductImage returns the main product image URL found in a rendered
// product page, or "" when none is usable. Inline data: images are skipped.
func ProductImage(page string) string {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}
	return productImage(doc)
}

func productImage(doc *html.Node) string {
	for _, expr := range productImageXPaths {
		nodes, err := htmlquery.QueryAll(doc, expr)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			for _, attr := range []string{"src", "data-src"} {
				if u := NormalizeImageURL(htmlquery.SelectAttr(n, attr)); u != "" {
					return u
				}
			}
		}
	}

	if meta := htmlquery.FindOne(doc, `//meta[@property='og:image']`); meta != nil {
		return NormalizeImageURL(htmlquery.SelectAttr(meta, "content"))
	}
	return ""
}
