package scraper

import (
	"net/url"
	"strconv"
)

// NormalizePager splits a category URL into a pager base and the page
// to start from. A page query parameter is stripped from the base and
// becomes the start page, any other parameters are preserved.
func NormalizePager(u *url.URL) (*url.URL, int) {
	base := *u

	startPage := 1
	q := base.Query()
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			startPage = n
		}
	}
	q.Del("page")
	base.RawQuery = q.Encode()

	return &base, startPage
}

// BuildPageURL returns the base URL with the page parameter set.
func BuildPageURL(base *url.URL, page int) *url.URL {
	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return &u
}
