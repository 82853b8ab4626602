package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/collection_search/internal/search"
	"github.com/atlekbai/collection_search/internal/search/searchtest"
)

func newMux(t *testing.T) *http.ServeMux {
	t.Helper()
	reg, sess := searchtest.Garden(t)
	s, err := search.New(reg, sess, search.WithConfirm(search.ContextConfirm))
	require.NoError(t, err)
	mux := http.NewServeMux()
	New(s, reg).Routes(mux)
	return mux
}

func get(t *testing.T, mux http.Handler, path string, params url.Values) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	target := path
	if params != nil {
		target += "?" + params.Encode()
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestSearchEndpoint(t *testing.T) {
	mux := newMux(t)
	rec, body := get(t, mux, "/api/search", url.Values{"q": {"plant WHERE location.code = 'BED'"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, []any{"MapperSearch"}, body["strategies"])

	results := body["results"].([]any)
	require.Len(t, results, 1)
	plant := results[0].(map[string]any)
	assert.Equal(t, "plant:2", plant["key"])
	assert.Equal(t, "P2", plant["fields"].(map[string]any)["code"])
}

func TestSearchEndpointConfirm(t *testing.T) {
	mux := newMux(t)
	_, body := get(t, mux, "/api/search", url.Values{"q": {"oak"}})
	assert.Equal(t, float64(0), body["count"])

	_, body = get(t, mux, "/api/search", url.Values{"q": {"oak"}, "confirm": {"true"}})
	assert.Equal(t, float64(2), body["count"])
}

func TestSearchEndpointErrors(t *testing.T) {
	mux := newMux(t)
	tests := []struct {
		params url.Values
		status int
		code   string
	}{
		{url.Values{}, http.StatusBadRequest, "INVALID_PARAM"},
		{url.Values{"q": {"oak"}, "confirm": {"perhaps"}}, http.StatusBadRequest, "INVALID_PARAM"},
		{url.Values{"q": {"plant WHERE qty ="}}, http.StatusBadRequest, "PARSE_ERROR"},
		{url.Values{"q": {"shrub WHERE x = 1"}}, http.StatusBadRequest, "UNKNOWN_DOMAIN"},
		{url.Values{"q": {"plant WHERE bogus = 1"}}, http.StatusBadRequest, "UNKNOWN_ATTRIBUTE"},
		{url.Values{"q": {"plant WHERE qty = many"}}, http.StatusBadRequest, "TYPE_MISMATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.params.Encode(), func(t *testing.T) {
			rec, body := get(t, mux, "/api/search", tt.params)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDomainsEndpoint(t *testing.T) {
	mux := newMux(t)
	rec, body := get(t, mux, "/api/domains", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	domains := body["domains"].([]any)
	require.Len(t, domains, 6)
	vern := domains[2].(map[string]any)
	assert.Equal(t, "vernacular", vern["name"])
	assert.Equal(t, []any{"vern", "common"}, vern["shorthands"])
	assert.Equal(t, "vernacular_name", vern["entity"])
}
