// Package override holds the admin-maintained overrides that are merged on
// top of KLARA catalog articles at read time.
package override

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidOverride is returned when an override fails validation.
var ErrInvalidOverride = errors.New("invalid override")

const (
	minTasteScore = 1
	maxTasteScore = 5
)

var hundred = decimal.NewFromInt(100)

// Override is the locally stored delta for one KLARA article. Nil fields fall
// through to the canonical article.
type Override struct {
	ArticleID         string           `json:"articleId"`
	CustomName        *string          `json:"customName,omitempty"`
	CustomDescription *string          `json:"customDescription,omitempty"`
	CustomPrice       *decimal.Decimal `json:"customPrice,omitempty"`
	CustomImages      []string         `json:"customImages,omitempty"`
	CustomData        *CustomData      `json:"customData,omitempty"`
	IsActive          *bool            `json:"isActive,omitempty"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// CustomData carries the structured tasting attributes edited in the admin UI.
type CustomData struct {
	GrapeVarieties     []string         `json:"grapeVarieties,omitempty"`
	AromaNotes         []string         `json:"aromaNotes,omitempty"`
	FoodPairing        []string         `json:"foodPairing,omitempty"`
	ServingTemperature string           `json:"servingTemperature,omitempty"`
	AlcoholContent     string           `json:"alcoholContent,omitempty"`
	BarrelAging        string           `json:"barrelAging,omitempty"`
	Sweetness          *int             `json:"sweetness,omitempty"`
	Acidity            *int             `json:"acidity,omitempty"`
	Tannin             *int             `json:"tannin,omitempty"`
	Body               *int             `json:"body,omitempty"`
	Fruitiness         *int             `json:"fruitiness,omitempty"`
	NewItemUntil       *time.Time       `json:"newItemUntil,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
}

// Validate checks the taste scores and the discount range.
func (d *CustomData) Validate() error {
	if d == nil {
		return nil
	}
	scores := []struct {
		name  string
		value *int
	}{
		{"sweetness", d.Sweetness},
		{"acidity", d.Acidity},
		{"tannin", d.Tannin},
		{"body", d.Body},
		{"fruitiness", d.Fruitiness},
	}
	for _, s := range scores {
		if s.value != nil && (*s.value < minTasteScore || *s.value > maxTasteScore) {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidOverride, s.name, minTasteScore, maxTasteScore)
		}
	}
	if p := d.DiscountPercentage; p != nil && (p.IsNegative() || p.GreaterThan(hundred)) {
		return fmt.Errorf("%w: discountPercentage must be between 0 and 100", ErrInvalidOverride)
	}
	return nil
}

// Validate checks an override before it is persisted.
func (o *Override) Validate() error {
	if o.ArticleID == "" {
		return fmt.Errorf("%w: articleId is required", ErrInvalidOverride)
	}
	if o.CustomPrice != nil && o.CustomPrice.IsNegative() {
		return fmt.Errorf("%w: customPrice must not be negative", ErrInvalidOverride)
	}
	return o.CustomData.Validate()
}

// IsEmpty reports whether the override changes nothing about the article.
func (o *Override) IsEmpty() bool {
	return o.CustomName == nil &&
		o.CustomDescription == nil &&
		o.CustomPrice == nil &&
		len(o.CustomImages) == 0 &&
		o.CustomData == nil &&
		o.IsActive == nil
}

// Clone returns a deep copy of o.
func (o *Override) Clone() *Override {
	if o == nil {
		return nil
	}
	c := *o
	c.CustomName = clonePtr(o.CustomName)
	c.CustomDescription = clonePtr(o.CustomDescription)
	c.CustomPrice = clonePtr(o.CustomPrice)
	c.CustomImages = slices.Clone(o.CustomImages)
	c.CustomData = o.CustomData.Clone()
	c.IsActive = clonePtr(o.IsActive)
	return &c
}

// Clone returns a deep copy of d.
func (d *CustomData) Clone() *CustomData {
	if d == nil {
		return nil
	}
	c := *d
	c.GrapeVarieties = slices.Clone(d.GrapeVarieties)
	c.AromaNotes = slices.Clone(d.AromaNotes)
	c.FoodPairing = slices.Clone(d.FoodPairing)
	c.Sweetness = clonePtr(d.Sweetness)
	c.Acidity = clonePtr(d.Acidity)
	c.Tannin = clonePtr(d.Tannin)
	c.Body = clonePtr(d.Body)
	c.Fruitiness = clonePtr(d.Fruitiness)
	c.NewItemUntil = clonePtr(d.NewItemUntil)
	c.DiscountPercentage = clonePtr(d.DiscountPercentage)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
