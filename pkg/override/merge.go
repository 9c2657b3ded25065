package override

import (
	"slices"
	"time"

	"github.com/illmade-knight/go-klaracatalog/pkg/klara"
	"github.com/shopspring/decimal"
)

// DisplayState is the admin-facing state of an article.
type DisplayState string

const (
	StateNoOverride DisplayState = "no_override"
	StateOverridden DisplayState = "overridden"
	StateHidden     DisplayState = "hidden"
)

// ArticleView is what shoppers see: the canonical article with the override applied.
type ArticleView struct {
	ID             string          `json:"id"`
	ArticleNumber  string          `json:"articleNumber"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	Images         []string        `json:"images"`
	CategoryIDs    []string        `json:"categoryIds"`
	Stock          int             `json:"stock"`
	Visible        bool            `json:"visible"`
	IsNew          bool            `json:"isNew"`
	CustomData     *CustomData     `json:"customData,omitempty"`
	State          DisplayState    `json:"state"`
}

// StateOf derives the display state from an override row, which may be nil.
func StateOf(ov *Override) DisplayState {
	switch {
	case ov == nil || ov.IsEmpty():
		return StateNoOverride
	case ov.IsActive != nil && !*ov.IsActive:
		return StateHidden
	default:
		return StateOverridden
	}
}

// Merge applies ov on top of article. Identity, stock and categories always
// come from the canonical article; every other field takes the override value
// when present. now decides whether the "new" badge is still active.
func Merge(article klara.Article, ov *Override, now time.Time) ArticleView {
	view := ArticleView{
		ID:            article.ID,
		ArticleNumber: article.ArticleNumber,
		Name:          article.Name,
		Description:   article.Description,
		Price:         article.Price,
		Images:        []string{},
		CategoryIDs:   slices.Clone(article.CategoryIDs),
		Stock:         article.Stock,
		Visible:       true,
		State:         StateOf(ov),
	}
	if view.CategoryIDs == nil {
		view.CategoryIDs = []string{}
	}

	if ov != nil {
		if ov.CustomName != nil {
			view.Name = *ov.CustomName
		}
		if ov.CustomDescription != nil {
			view.Description = *ov.CustomDescription
		}
		if ov.CustomPrice != nil {
			view.Price = *ov.CustomPrice
		}
		if ov.CustomImages != nil {
			view.Images = slices.Clone(ov.CustomImages)
		}
		if ov.IsActive != nil {
			view.Visible = *ov.IsActive
		}
		view.CustomData = ov.CustomData
	}

	var discount *decimal.Decimal
	if view.CustomData != nil {
		discount = view.CustomData.DiscountPercentage
		if until := view.CustomData.NewItemUntil; until != nil {
			view.IsNew = until.After(now)
		}
	}
	view.EffectivePrice = EffectivePrice(view.Price, discount)
	return view
}

// EffectivePrice applies a percentage discount to base and rounds half-up to
// cents. A nil or non-positive discount leaves base unchanged; discounts above
// 100 are clamped.
func EffectivePrice(base decimal.Decimal, discountPercentage *decimal.Decimal) decimal.Decimal {
	if discountPercentage == nil || !discountPercentage.IsPositive() {
		return base
	}
	pct := decimal.Min(*discountPercentage, hundred)
	return base.Mul(hundred.Sub(pct)).Div(hundred).Round(2)
}
