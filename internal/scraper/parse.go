package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	selListSection = "section.EntityList"
	selListItems   = "ul.EntityList-items"
	selListItem    = "li.EntityList-item"
	selEntityBody  = "article.entity-body"
	selTitleLink   = "h3.entity-title > a.link"
	selPrice       = "div.entity-prices strong.price"
	selDescMain    = ".entity-description-main"
)

// parsePage extracts listing cards from a category page. Cards are read
// from the entity list sections; when none match, every list item in
// the document is tried so layout reshuffles degrade gracefully.
func parsePage(doc *goquery.Document, pageURL *url.URL) []Hit {
	var hits []Hit

	doc.Find(selListSection).Each(func(_ int, section *goquery.Selection) {
		section.Find(selListItems).Each(func(_ int, ul *goquery.Selection) {
			ul.Find(selListItem).Each(func(_ int, li *goquery.Selection) {
				if hit, ok := parseCard(li, pageURL); ok {
					hits = append(hits, hit)
				}
			})
		})
	})

	if len(hits) == 0 {
		doc.Find(selListItem).Each(func(_ int, li *goquery.Selection) {
			if hit, ok := parseCard(li, pageURL); ok {
				hits = append(hits, hit)
			}
		})
	}

	return hits
}

// parseCard turns one list item into a Hit. Items without a resolvable
// listing URL or a display price are skipped.
func parseCard(li *goquery.Selection, pageURL *url.URL) (Hit, bool) {
	scope := li.Find(selEntityBody).First()
	if scope.Length() == 0 {
		scope = li
	}

	title := strings.TrimSpace(scope.Find(selTitleLink).First().Text())
	rawPrice := strings.TrimSpace(scope.Find(selPrice).First().Text())

	href, ok := scope.Find(selTitleLink).First().Attr("href")
	if !ok {
		href, _ = li.Attr("data-href")
	}

	listingURL := ""
	if href != "" {
		if resolved, err := pageURL.Parse(href); err == nil {
			listingURL = resolved.String()
		}
	}

	if listingURL == "" || rawPrice == "" {
		return Hit{}, false
	}

	priceNumeric, currency := NormalizePrice(rawPrice)

	sqm := extractSqm(li.Find(selDescMain).First().Text())
	if sqm == nil {
		sqm = extractSqm(scope.Find(selDescMain).First().Text())
	}

	var pricePerM2 *float64
	if priceNumeric != nil && sqm != nil && *sqm > 0 {
		v := *priceNumeric / *sqm
		pricePerM2 = &v
	}

	return Hit{
		ID:           ExtractID(listingURL),
		ListingURL:   listingURL,
		Title:        title,
		PriceNumeric: priceNumeric,
		Currency:     currency,
		RawPrice:     rawPrice,
		Sqm:          sqm,
		PricePerM2:   pricePerM2,
	}, true
}
