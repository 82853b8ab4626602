package server

import (
	"context"
	"log/slog"
	"time"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"
)

// ValidationInterceptor rejects requests that fail protovalidate constraints.
func ValidationInterceptor(validator protovalidate.Validator) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if msg, ok := req.Any().(proto.Message); ok {
				if err := validator.Validate(msg); err != nil {
					return nil, connect.NewError(connect.CodeInvalidArgument, err)
				}
			}
			return next(ctx, req)
		}
	}
}

// LoggingInterceptor logs each call with its procedure, outcome and duration.
// Failures with a server-side code are logged at error level.
func LoggingInterceptor(log *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"procedure", req.Spec().Procedure,
				"protocol", req.Peer().Protocol,
				"duration", time.Since(start),
			}
			if err == nil {
				log.InfoContext(ctx, "rpc", attrs...)
				return resp, nil
			}
			code := connect.CodeOf(err)
			attrs = append(attrs, "code", code.String(), "error", err)
			switch code {
			case connect.CodeInternal, connect.CodeUnknown, connect.CodeUnavailable, connect.CodeDataLoss:
				log.ErrorContext(ctx, "rpc failed", attrs...)
			default:
				log.WarnContext(ctx, "rpc failed", attrs...)
			}
			return nil, err
		}
	}
}
