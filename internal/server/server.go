package server

import (
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/vanguard"
)

// ConnectService is implemented by each service to register its connect handler.
type ConnectService interface {
	RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler)
}

// NewTranscoder serves services over Connect, gRPC and gRPC-Web, and over
// REST where their methods carry google.api.http annotations. The service
// descriptors must already be in protoregistry.GlobalFiles.
func NewTranscoder(services []ConnectService, interceptors ...connect.Interceptor) (*vanguard.Transcoder, error) {
	vanguardServices := make([]*vanguard.Service, len(services))
	for i, svc := range services {
		path, handler := svc.RegisterHandler(interceptors...)
		vanguardServices[i] = vanguard.NewService(path, handler)
	}
	transcoder, err := vanguard.NewTranscoder(vanguardServices)
	if err != nil {
		return nil, fmt.Errorf("vanguard transcoder: %w", err)
	}
	return transcoder, nil
}
