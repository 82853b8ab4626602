package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search"
	"github.com/atlekbai/collection_search/internal/search/grammar"
)

type Handler struct {
	searcher *search.Searcher
	reg      *schema.Registry
}

func New(searcher *search.Searcher, reg *schema.Registry) *Handler {
	return &Handler{searcher: searcher, reg: reg}
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/domains", h.Domains)
}

type searchResponse struct {
	SearchID   string           `json:"search_id"`
	Count      int              `json:"count"`
	Strategies []string         `json:"strategies"`
	Results    []map[string]any `json:"results"`
	Errors     []strategyError  `json:"errors"`
}

type strategyError struct {
	Strategy string `json:"strategy"`
	Message  string `json:"message"`
}

// Search handles GET /api/search?q=...&confirm=true
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("q"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "Missing search text", "query parameter 'q' is required")
		return
	}

	confirm := false
	if v := r.URL.Query().Get("confirm"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAM", "Invalid confirm value", err.Error())
			return
		}
		confirm = b
	}

	res, err := h.searcher.Search(search.AllowBroad(r.Context(), confirm), text)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	resp := searchResponse{
		SearchID:   res.ID.String(),
		Count:      len(res.Entities),
		Strategies: h.searcher.Strategies(text),
		Results:    make([]map[string]any, len(res.Entities)),
		Errors:     make([]strategyError, len(res.Errors)),
	}
	for i, e := range res.Entities {
		resp.Results[i] = e.Plain()
	}
	for i, e := range res.Errors {
		resp.Errors[i] = strategyError{Strategy: e.Strategy, Message: e.Err.Error()}
	}
	writeJSON(w, http.StatusOK, resp)
}

type domainResponse struct {
	Name       string   `json:"name"`
	Shorthands []string `json:"shorthands"`
	Entity     string   `json:"entity"`
	Columns    []string `json:"columns"`
}

// Domains handles GET /api/domains
func (h *Handler) Domains(w http.ResponseWriter, r *http.Request) {
	domains := h.reg.Domains()
	out := make([]domainResponse, len(domains))
	for i, d := range domains {
		out[i] = domainResponse{
			Name:       d.Name,
			Shorthands: d.Shorthands,
			Entity:     d.Entity.Name,
			Columns:    d.DefaultColumns,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": out})
}

func writeSearchError(w http.ResponseWriter, err error) {
	var (
		pe  *grammar.ParseError
		ude *search.UnknownDomainError
		ae  *search.AttributeError
	)
	switch {
	case errors.As(err, &pe):
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", "Search text not understood", err.Error())
	case errors.As(err, &ude):
		writeError(w, http.StatusBadRequest, "UNKNOWN_DOMAIN", "Unknown search domain", err.Error())
	case errors.As(err, &ae):
		writeError(w, http.StatusBadRequest, "UNKNOWN_ATTRIBUTE", "Unknown attribute", err.Error())
	case errors.Is(err, search.ErrTypeMismatch):
		writeError(w, http.StatusBadRequest, "TYPE_MISMATCH", "Value does not match the attribute type", err.Error())
	case search.IsInputError(err):
		writeError(w, http.StatusBadRequest, "INVALID_SEARCH", "Search failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Query failed", err.Error())
	}
}
