package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// ListDomains describes the registered search domains.
func (s *SearchService) ListDomains(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	domains := s.reg.Domains()
	list := make([]any, len(domains))
	for i, d := range domains {
		shorthands := make([]any, len(d.Shorthands))
		for j, sh := range d.Shorthands {
			shorthands[j] = sh
		}
		columns := make([]any, len(d.DefaultColumns))
		for j, c := range d.DefaultColumns {
			columns[j] = c
		}
		list[i] = map[string]any{
			"name":       d.Name,
			"shorthands": shorthands,
			"entity":     d.Entity.Name,
			"columns":    columns,
		}
	}

	out, err := structpb.NewStruct(map[string]any{"domains": list})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("marshal domains: %w", err))
	}
	return connect.NewResponse(out), nil
}
