package klara

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "Rotwein", firstNonEmpty("", "  ", "Rotwein", "Red wine"))
	assert.Equal(t, "Red wine", firstNonEmpty("", "Red wine"))
	assert.Equal(t, "", firstNonEmpty())
	assert.Equal(t, "", firstNonEmpty(" ", "\t"))
}

func TestNormalizeArticle(t *testing.T) {
	decode := func(t *testing.T, s string) rawArticle {
		t.Helper()
		var raw rawArticle
		require.NoError(t, json.Unmarshal([]byte(s), &raw))
		return raw
	}

	t.Run("Falls back to English fields", func(t *testing.T) {
		a, ok := normalizeArticle(decode(t, `{"id":"1","articleNumber":"n1","nameEN":"Red","descriptionEN":"Dry"}`))

		require.True(t, ok)
		assert.Equal(t, "Red", a.Name)
		assert.Equal(t, "Dry", a.Description)
	})

	t.Run("German wins over English", func(t *testing.T) {
		a, _ := normalizeArticle(decode(t, `{"id":"1","articleNumber":"n1","nameDE":"Rot","nameEN":"Red"}`))

		assert.Equal(t, "Rot", a.Name)
	})

	t.Run("Default name when nothing is set", func(t *testing.T) {
		a, _ := normalizeArticle(decode(t, `{"id":"1","articleNumber":"n1"}`))

		assert.Equal(t, "Artikel", a.Name)
		assert.Equal(t, "", a.Description)
		assert.True(t, a.Price.IsZero())
		assert.Empty(t, a.CategoryIDs)
	})

	t.Run("Id and number back-fill each other", func(t *testing.T) {
		a, ok := normalizeArticle(decode(t, `{"number": 4711}`))
		require.True(t, ok)
		assert.Equal(t, "4711", a.ID)
		assert.Equal(t, "4711", a.ArticleNumber)

		b, ok := normalizeArticle(decode(t, `{"id": 12}`))
		require.True(t, ok)
		assert.Equal(t, "12", b.ID)
		assert.Equal(t, "12", b.ArticleNumber)
	})

	t.Run("Record without identity is dropped", func(t *testing.T) {
		_, ok := normalizeArticle(decode(t, `{"nameDE":"Ghost"}`))

		assert.False(t, ok)
	})

	t.Run("Price from first period, duplicate categories collapsed", func(t *testing.T) {
		a, _ := normalizeArticle(decode(t, `{"id":"1","pricePeriods":[{"price":"12.50"},{"price":99}],
			"categories":[{"id":"x"},{"id":"x"},{"id":""},{"id":"y"}]}`))

		assert.Equal(t, "12.5", a.Price.String())
		assert.Equal(t, []string{"x", "y"}, a.CategoryIDs)
	})

	t.Run("Null price is zero", func(t *testing.T) {
		a, _ := normalizeArticle(decode(t, `{"id":"1","pricePeriods":[{"price":null}]}`))

		assert.True(t, a.Price.IsZero())
	})
}

func TestDecodeList(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "Bare array", body: `[{"id":1},{"id":2}]`, want: 2},
		{name: "Data wrapper", body: `{"data":[{"id":1}]}`, want: 1},
		{name: "Items wrapper", body: `{"items":[]}`, want: 0},
		{name: "Named wrapper", body: `{"articles":[{"id":1}]}`, want: 1},
		{name: "Object without list", body: `{"error":"nope"}`, wantErr: true},
		{name: "Empty body", body: ``, wantErr: true},
		{name: "Scalar", body: `42`, wantErr: true},
		{name: "Truncated", body: `[{"id":1}`, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := decodeList([]byte(tc.body), "articles")
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, list, tc.want)
		})
	}
}

func TestSortCategories_IsStable(t *testing.T) {
	cats := []Category{
		{ID: "b", SortOrder: SortOrderLast},
		{ID: "a", SortOrder: 5},
		{ID: "c", SortOrder: SortOrderLast},
		{ID: "d", SortOrder: 1},
	}

	sortCategories(cats)

	got := []string{cats[0].ID, cats[1].ID, cats[2].ID, cats[3].ID}
	assert.Equal(t, []string{"d", "a", "b", "c"}, got)
}

func TestNormalizeCategory_Order(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want int
	}{
		{name: "Integer", body: `{"id":"c","order":3}`, want: 3},
		{name: "Numeric string", body: `{"id":"c","order":"2"}`, want: 2},
		{name: "Float", body: `{"id":"c","order":4.0}`, want: 4},
		{name: "Missing", body: `{"id":"c"}`, want: SortOrderLast},
		{name: "Huge float", body: `{"id":"c","order":1e300}`, want: SortOrderLast},
		{name: "Huge negative float", body: `{"id":"c","order":-1e300}`, want: SortOrderLast},
		{name: "Beyond int32", body: `{"id":"c","order":4294967296}`, want: SortOrderLast},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var raw rawCategory
			require.NoError(t, json.Unmarshal([]byte(tc.body), &raw))

			c, ok := normalizeCategory(raw)

			require.True(t, ok)
			assert.Equal(t, tc.want, c.SortOrder)
		})
	}
}
