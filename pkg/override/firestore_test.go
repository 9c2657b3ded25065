package override

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDoc_RejectsMalformedDecimals(t *testing.T) {
	bad := "twelve"

	_, err := fromDoc("art-1", overrideDoc{CustomPrice: &bad})
	assert.ErrorContains(t, err, "customPrice")

	_, err = fromDoc("art-1", overrideDoc{CustomData: &customDataDoc{DiscountPercentage: &bad}})
	assert.ErrorContains(t, err, "discountPercentage")
}

func TestFromDoc_RoundTrip(t *testing.T) {
	price := "12.5"
	active := false
	doc := overrideDoc{CustomPrice: &price, IsActive: &active, UpdatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}

	ov, err := fromDoc("art-1", doc)

	require.NoError(t, err)
	assert.Equal(t, "art-1", ov.ArticleID)
	assert.Equal(t, "12.5", ov.CustomPrice.String())
	assert.Equal(t, doc, toDoc(ov))
}

func TestVisibilityOnly(t *testing.T) {
	hidden := visibilityOnly("art-1", false)
	require.NotNil(t, hidden)
	assert.Equal(t, "art-1", hidden.ArticleID)
	require.NotNil(t, hidden.IsActive)
	assert.False(t, *hidden.IsActive)
	assert.Equal(t, StateHidden, StateOf(hidden))

	assert.Nil(t, visibilityOnly("art-1", nil))
	assert.Nil(t, visibilityOnly("art-1", "no"))
}
