package override

import (
	"slices"
	"strings"

	"github.com/illmade-knight/go-klaracatalog/pkg/klara"
	"github.com/shopspring/decimal"
)

// Form is the admin edit submitted for one article. The edit modal is
// pre-filled with the merged values, so unchanged fields arrive equal to the
// canonical ones.
type Form struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Images      []string         `json:"images,omitempty"`
	CustomData  *CustomData      `json:"customData,omitempty"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// BuildPayload turns a form into the override to persist. Name, description
// and price are stored only when they differ from the canonical article, so
// later upstream changes show through untouched fields. Images and custom data
// have no canonical counterpart and are stored as submitted.
func BuildPayload(article klara.Article, form Form) (*Override, error) {
	ov := &Override{ArticleID: article.ID}

	if form.Name != nil {
		if name := strings.TrimSpace(*form.Name); name != strings.TrimSpace(article.Name) {
			ov.CustomName = &name
		}
	}
	if form.Description != nil {
		if desc := strings.TrimSpace(*form.Description); desc != strings.TrimSpace(article.Description) {
			ov.CustomDescription = &desc
		}
	}
	if form.Price != nil && !form.Price.Equal(article.Price) {
		price := *form.Price
		ov.CustomPrice = &price
	}
	if form.Images != nil {
		ov.CustomImages = slices.Clone(form.Images)
	}
	if form.CustomData != nil {
		ov.CustomData = form.CustomData.Clone()
	}
	if form.IsActive != nil {
		active := *form.IsActive
		ov.IsActive = &active
	}

	if err := ov.Validate(); err != nil {
		return nil, err
	}
	return ov, nil
}
