// Package klara is a read-through cached client for the KLARA POS catalog API.
//
// Every public fetch returns a plain slice. Upstream failures of any kind
// (missing credentials, transport errors, non-2xx responses, malformed bodies)
// are logged and collapsed to an empty slice so that storefront pages can
// render a "no products" state during POS outages.
package klara

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// StockAlwaysAvailable is reported for every article; KLARA does not expose stock.
const StockAlwaysAvailable = 999

// SortOrderLast is assigned to categories without an explicit order.
const SortOrderLast = math.MaxInt32

const (
	defaultArticleName  = "Artikel"
	defaultCategoryName = "Kategorie"
)

// Article is the canonical, normalized representation of a KLARA article.
type Article struct {
	ID            string          `json:"id"`
	ArticleNumber string          `json:"articleNumber"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	CategoryIDs   []string        `json:"categoryIds"`
	Stock         int             `json:"stock"`
}

// InCategory reports whether the article belongs to categoryID.
func (a Article) InCategory(categoryID string) bool {
	return slices.Contains(a.CategoryIDs, categoryID)
}

// Category is the canonical representation of a KLARA article category.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// Listing is the value type held in the catalog cache. Exactly one of the
// two slices is populated, depending on the key namespace.
type Listing struct {
	Articles   []Article  `json:"articles,omitempty"`
	Categories []Category `json:"categories,omitempty"`
}
