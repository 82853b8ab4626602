package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search"
)

// Procedure paths of search.v1.SearchService.
const (
	SearchServiceName    = "search.v1.SearchService"
	SearchServicePath    = "/" + SearchServiceName + "/"
	SearchProcedure      = SearchServicePath + "Search"
	ListDomainsProcedure = SearchServicePath + "ListDomains"
)

// SearchService serves search.v1.SearchService. Messages are
// google.protobuf.Struct values:
//
//	Search      {text, confirm_broad} -> {search_id, count, results, errors}
//	ListDomains {}                    -> {domains}
type SearchService struct {
	searcher *search.Searcher
	reg      *schema.Registry
}

func NewSearchService(searcher *search.Searcher, reg *schema.Registry) *SearchService {
	return &SearchService{searcher: searcher, reg: reg}
}

func (s *SearchService) RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler) {
	opts := connect.WithInterceptors(interceptors...)
	mux := http.NewServeMux()
	mux.Handle(SearchProcedure, connect.NewUnaryHandler(SearchProcedure, s.Search, opts))
	mux.Handle(ListDomainsProcedure, connect.NewUnaryHandler(ListDomainsProcedure, s.ListDomains, opts))
	return SearchServicePath, mux
}

func (s *SearchService) Search(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	text := strings.TrimSpace(fields["text"].GetStringValue())
	if text == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}

	ctx = search.AllowBroad(ctx, fields["confirm_broad"].GetBoolValue())
	res, err := s.searcher.Search(ctx, text)
	if err != nil {
		return nil, searchError(err)
	}

	out, err := structpb.NewStruct(ResultMap(res))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("marshal result: %w", err))
	}
	return connect.NewResponse(out), nil
}

// ResultMap converts a search result to plain values.
func ResultMap(res *search.Result) map[string]any {
	results := make([]any, len(res.Entities))
	for i, e := range res.Entities {
		results[i] = e.Plain()
	}
	errs := make([]any, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = map[string]any{"strategy": e.Strategy, "message": e.Err.Error()}
	}
	return map[string]any{
		"search_id": res.ID.String(),
		"count":     int64(len(res.Entities)),
		"results":   results,
		"errors":    errs,
	}
}

func searchError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case search.IsInputError(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
