package klara

import (
	"net/url"
	"strings"
)

const (
	articlesNamespace   = "articles"
	categoriesNamespace = "categories"
)

// normalizeQuery trims the category id and trims and lower-cases the search
// term, so that queries the filter treats identically share a cache line.
func normalizeQuery(categoryID, search string) (string, string) {
	return strings.TrimSpace(categoryID), strings.ToLower(strings.TrimSpace(search))
}

// ArticlesKey derives the cache key for an article query. Components are
// query-escaped, so separators inside ids or search terms cannot collide.
func ArticlesKey(categoryID, search string) string {
	categoryID, search = normalizeQuery(categoryID, search)
	var b strings.Builder
	b.WriteString(articlesNamespace)
	if categoryID != "" {
		b.WriteString("|category=")
		b.WriteString(url.QueryEscape(categoryID))
	}
	if search != "" {
		b.WriteString("|search=")
		b.WriteString(url.QueryEscape(search))
	}
	return b.String()
}

// CategoriesKey is the cache key for the category list.
func CategoriesKey() string {
	return categoriesNamespace
}
