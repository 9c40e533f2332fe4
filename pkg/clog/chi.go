package clog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type chiConfig struct {
	Filter  func(r *http.Request) bool
	Headers map[string]string
}

type ChiOption interface {
	apply(*chiConfig)
}

type chiOptionFunc func(*chiConfig)

func (o chiOptionFunc) apply(c *chiConfig) {
	o(c)
}

func WithChiFilter(filter func(r *http.Request) bool) ChiOption {
	return chiOptionFunc(func(cfg *chiConfig) {
		cfg.Filter = filter
	})
}

// WithChiHeaderAttribute copies request header into the attribute key.
func WithChiHeaderAttribute(header, key string) ChiOption {
	return chiOptionFunc(func(cfg *chiConfig) {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		cfg.Headers[header] = key
	})
}

// SlogChiMiddleware logs one line per request once the handler has returned.
// The matched route pattern is logged instead of the raw path so that task
// ids do not fan out into distinct messages.
func SlogChiMiddleware(opts ...ChiOption) func(http.Handler) http.Handler {
	cfg := chiConfig{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := ContextWithSlog(r.Context())
			attrs := map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"proto":  r.Proto,
			}
			for header, key := range cfg.Headers {
				if v := r.Header.Get(header); v != "" {
					attrs[key] = v
				}
			}
			AddAttributes(ctx, attrs)

			next.ServeHTTP(ww, r.WithContext(ctx))
			if cfg.Filter != nil && !cfg.Filter(r) {
				return
			}
			done := map[string]any{
				"status":        ww.Status(),
				"bytes_written": ww.BytesWritten(),
				"duration":      time.Since(start),
			}
			if rc := chi.RouteContext(ctx); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					done["route"] = pattern
				}
			}
			AddAttributes(ctx, done)
			HTTPStatusToLevel(ww.Status()).Log(ctx, http.StatusText(ww.Status()))
		})
	}
}
