// Package middleware holds transport middleware shared by the servers.
package middleware

import (
	"context"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// slowRequestThreshold marks admin calls worth a dedicated warning. The API
// only talks to Redis, so anything above this usually means store trouble.
const slowRequestThreshold = time.Second

// Logging returns a middleware that records method, path, status, and
// latency for every request.
func Logging(logger log.Logger) middleware.Middleware {
	helper := log.NewHelper(logger)

	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			start := time.Now()

			var method, path string
			if tr, ok := transport.FromServerContext(ctx); ok {
				method = string(tr.Kind())
				path = tr.Operation()
				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
				}
			}

			reply, err := handler(ctx, req)

			duration := time.Since(start)
			status := httpStatus(err)

			helper.Infow("request completed",
				"method", method,
				"path", path,
				"status", status,
				"duration_ms", duration.Milliseconds())

			if duration >= slowRequestThreshold {
				helper.Warnw("slow request",
					"method", method,
					"path", path,
					"duration_ms", duration.Milliseconds())
			}

			return reply, err
		}
	}
}

// httpStatus extracts the HTTP status code from a handler error.
func httpStatus(err error) int {
	if err == nil {
		return 200
	}
	if se := kerrors.FromError(err); se != nil {
		return int(se.Code)
	}
	return 500
}
