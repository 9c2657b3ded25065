package microservice_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/illmade-knight/go-klaracatalog/pkg/cache"
	"github.com/illmade-knight/go-klaracatalog/pkg/catalog"
	"github.com/illmade-knight/go-klaracatalog/pkg/klara"
	"github.com/illmade-knight/go-klaracatalog/pkg/microservice"
	"github.com/illmade-knight/go-klaracatalog/pkg/override"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	url       string
	overrides *override.InMemoryStore
	cache     *cache.TTLCache[string, klara.Listing]
}

// newTestServer serves the five bundled demo articles through the full stack.
func newTestServer(t *testing.T, cfg klara.Config) testServer {
	t.Helper()
	store := cache.NewTTLCache[string, klara.Listing]()
	client, err := klara.NewClient(cfg, store, nil, zerolog.Nop())
	require.NoError(t, err)
	overrides := override.NewInMemoryStore()
	svc, err := catalog.NewService(client, overrides, zerolog.Nop())
	require.NoError(t, err)

	srv := microservice.NewCatalogServer(svc, ":0", zerolog.Nop())
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return testServer{url: ts.URL, overrides: overrides, cache: store}
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeInto[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCatalogServer_PublicRoutes(t *testing.T) {
	ts := newTestServer(t, klara.Config{UseMock: true})
	ctx := context.Background()
	hidden := false
	require.NoError(t, ts.overrides.Save(ctx, &override.Override{ArticleID: "art-1003", IsActive: &hidden}))

	t.Run("List articles hides hidden ones", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.url+"/api/klara/articles?category=cat-rotwein", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		views := decodeInto[[]map[string]any](t, resp)
		require.Len(t, views, 1)
		assert.Equal(t, "art-1001", views[0]["id"])
	})

	t.Run("Get article", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.url+"/api/klara/articles/art-1002", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		view := decodeInto[map[string]any](t, resp)
		assert.Equal(t, "Grüner Veltliner Federspiel 2022", view["name"])
	})

	t.Run("Hidden and unknown articles are not found", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, doRequest(t, http.MethodGet, ts.url+"/api/klara/articles/art-1003", "").StatusCode)
		assert.Equal(t, http.StatusNotFound, doRequest(t, http.MethodGet, ts.url+"/api/klara/articles/nope", "").StatusCode)
	})

	t.Run("Categories with counts", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.url+"/api/klara/categories", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		cats := decodeInto[[]map[string]any](t, resp)
		require.Len(t, cats, 3)
		assert.Equal(t, "cat-rotwein", cats[0]["id"])
		assert.EqualValues(t, 2, cats[0]["articleCount"])
	})

	t.Run("Category count", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.url+"/api/klara/categories/cat-weisswein/count", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decodeInto[map[string]any](t, resp)
		assert.Equal(t, "cat-weisswein", got["categoryId"])
		assert.EqualValues(t, 2, got["count"])
	})
}

func TestCatalogServer_UnconfiguredUpstreamServesEmptyLists(t *testing.T) {
	ts := newTestServer(t, klara.Config{})

	for _, path := range []string{"/api/klara/articles", "/api/klara/categories", "/api/admin/klara/articles"} {
		resp := doRequest(t, http.MethodGet, ts.url+path, "")

		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, []any{}, decodeInto[[]any](t, resp), path)
	}
}

func TestCatalogServer_AdminOverrides(t *testing.T) {
	ts := newTestServer(t, klara.Config{UseMock: true})
	url := ts.url + "/api/admin/klara/articles/art-1001/override"

	t.Run("Save stores the sparse diff", func(t *testing.T) {
		body := `{"name":"Barolo Riserva DOCG 2017","price":"44.90","customData":{"tannin":5}}`

		resp := doRequest(t, http.MethodPut, url, body)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		saved := decodeInto[override.Override](t, resp)
		assert.Nil(t, saved.CustomName)
		require.NotNil(t, saved.CustomPrice)
		assert.Equal(t, "44.9", saved.CustomPrice.String())
	})

	t.Run("Admin listing includes the override", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.url+"/api/admin/klara/articles?category=cat-rotwein", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		rows := decodeInto[[]catalog.AdminArticle](t, resp)
		require.Len(t, rows, 2)
		assert.Equal(t, "art-1001", rows[0].ID)
		assert.Equal(t, override.StateOverridden, rows[0].State)
		require.NotNil(t, rows[0].Override)
	})

	t.Run("Validation errors are 400", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doRequest(t, http.MethodPut, url, `{"customData":{"body":7}}`).StatusCode)
		assert.Equal(t, http.StatusBadRequest, doRequest(t, http.MethodPut, url, `{not json`).StatusCode)
		assert.Equal(t, http.StatusBadRequest, doRequest(t, http.MethodPut, url, `{"unknown":1}`).StatusCode)
	})

	t.Run("Unknown article is 404", func(t *testing.T) {
		resp := doRequest(t, http.MethodPut, ts.url+"/api/admin/klara/articles/nope/override", `{"name":"x"}`)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Delete", func(t *testing.T) {
		resp := doRequest(t, http.MethodDelete, url, "")

		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		stored, err := ts.overrides.Get(context.Background(), "art-1001")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

func TestCatalogServer_CacheAdmin(t *testing.T) {
	ts := newTestServer(t, klara.Config{UseMock: true})
	doRequest(t, http.MethodGet, ts.url+"/api/klara/categories", "")

	t.Run("Stats", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.url+"/api/admin/klara/cache/stats", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		stats := decodeInto[cache.CacheStats](t, resp)
		assert.Equal(t, 2, stats.Entries)
	})

	t.Run("Clear", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, ts.url+"/api/admin/klara/cache/clear", "")

		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, 0, ts.cache.Len())
	})

	t.Run("Wrong method", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, ts.url+"/api/admin/klara/cache/clear", "")

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
