package clog

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"
)

type connectConfig struct {
	Filter  func(spec connect.Spec) bool
	Headers map[string]string
}

type ConnectOption interface {
	apply(*connectConfig)
}

type connectOptionFunc func(*connectConfig)

func (o connectOptionFunc) apply(c *connectConfig) {
	o(c)
}

// WithConnectFilter skips the log line for procedures where filter returns false.
func WithConnectFilter(filter func(connect.Spec) bool) ConnectOption {
	return connectOptionFunc(func(cfg *connectConfig) {
		cfg.Filter = filter
	})
}

// WithConnectHeaderAttribute copies request header into the attribute key.
func WithConnectHeaderAttribute(header, key string) ConnectOption {
	return connectOptionFunc(func(cfg *connectConfig) {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		cfg.Headers[header] = key
	})
}

func DefaultConnectHealthCheckUnaryFilter(spec connect.Spec) bool {
	return spec.Procedure != "/grpc.health.v1.Health/Check"
}

// NewSlogConnectInterceptor logs one line per unary call. The task graph API
// has no streaming procedures, so streams pass through untouched.
func NewSlogConnectInterceptor(opts ...ConnectOption) connect.Interceptor {
	cfg := connectConfig{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return &slogConnectInterceptor{cfg: cfg}
}

type slogConnectInterceptor struct {
	cfg connectConfig
}

func (s *slogConnectInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		ctx = ContextWithSlog(ctx)
		attrs := map[string]any{
			"method":    req.HTTPMethod(),
			"procedure": req.Spec().Procedure,
		}
		for header, key := range s.cfg.Headers {
			if v := req.Header().Get(header); v != "" {
				attrs[key] = v
			}
		}
		AddAttributes(ctx, attrs)

		resp, err := next(ctx, req)
		if s.cfg.Filter != nil && !s.cfg.Filter(req.Spec()) {
			return resp, err
		}

		code := "ok"
		var connectErr *connect.Error
		if err != nil {
			if !errors.As(err, &connectErr) {
				connectErr = connect.NewError(connect.CodeUnknown, err)
			}
			code = connectErr.Code().String()
		}
		AddAttributes(ctx, map[string]any{
			"code":     code,
			"duration": time.Since(start),
		})
		if connectErr == nil {
			LevelInfo.Log(ctx, "Finished")
			return resp, err
		}
		logConnectError(ctx, connectErr)
		return resp, err
	}
}

func (s *slogConnectInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (s *slogConnectInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

func logConnectError(ctx context.Context, connectErr *connect.Error) {
	if errDetails := connectErr.Details(); len(errDetails) > 0 {
		details := make([]proto.Message, 0, len(errDetails))
		for _, detail := range errDetails {
			val, err := detail.Value()
			if err != nil {
				LevelError.Log(ctx, "failed to convert detail value")
				continue
			}
			details = append(details, val)
		}
		AddAttribute(ctx, "err_details", details)
	}
	ConnectCodeToLevel(connectErr.Code()).Log(ctx, connectErr.Message())
}
