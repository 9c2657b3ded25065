package klara

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// firstNonEmpty returns the first candidate that is non-empty after trimming.
// Localized fields are listed in priority order (DE, EN, neutral).
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}

// normalizeArticle maps a raw KLARA record onto Article. ok is false when the
// record carries neither an id nor an article number.
func normalizeArticle(raw rawArticle) (Article, bool) {
	number := firstNonEmpty(string(raw.ArticleNumber), string(raw.Number))
	id := firstNonEmpty(string(raw.ID), number)
	if id == "" {
		return Article{}, false
	}
	if number == "" {
		number = id
	}

	name := firstNonEmpty(raw.NameDE, raw.NameEN, raw.Name)
	if name == "" {
		name = defaultArticleName
	}

	price := decimal.Zero
	if len(raw.PricePeriods) > 0 && raw.PricePeriods[0].Price.Valid {
		price = raw.PricePeriods[0].Price.Decimal
	}

	categoryIDs := make([]string, 0, len(raw.Categories))
	for _, ref := range raw.Categories {
		cid := strings.TrimSpace(string(ref.ID))
		if cid == "" || slices.Contains(categoryIDs, cid) {
			continue
		}
		categoryIDs = append(categoryIDs, cid)
	}

	return Article{
		ID:            id,
		ArticleNumber: number,
		Name:          name,
		Description:   firstNonEmpty(raw.DescriptionDE, raw.DescriptionEN, raw.Description),
		Price:         price,
		CategoryIDs:   categoryIDs,
		Stock:         StockAlwaysAvailable,
	}, true
}

func normalizeCategory(raw rawCategory) (Category, bool) {
	id := strings.TrimSpace(string(raw.ID))
	if id == "" {
		return Category{}, false
	}
	name := firstNonEmpty(raw.NameDE, raw.NameEN, raw.Name)
	if name == "" {
		name = defaultCategoryName
	}
	order, ok := raw.orderValue()
	if !ok {
		order = SortOrderLast
	}
	return Category{ID: id, Name: name, SortOrder: order}, true
}

// sortCategories orders categories ascending by SortOrder; ties keep upstream order.
func sortCategories(categories []Category) {
	slices.SortStableFunc(categories, func(a, b Category) int {
		switch {
		case a.SortOrder < b.SortOrder:
			return -1
		case a.SortOrder > b.SortOrder:
			return 1
		default:
			return 0
		}
	})
}

// matchesFilter applies the category and case-insensitive search filters.
// search must already be lower-cased.
func matchesFilter(a Article, categoryID, search string) bool {
	if categoryID != "" && !a.InCategory(categoryID) {
		return false
	}
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Name), search) ||
		strings.Contains(strings.ToLower(a.ArticleNumber), search)
}
