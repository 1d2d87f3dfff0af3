package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/Sokol111/newsletter-publisher/pkg/http/problems"
	"go.uber.org/zap"
)

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := newStatusWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			fields := append(requestFields(r),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			logger.Get(r.Context()).Error("panic recovered", fields...)
			if !sw.wroteHeader {
				problems.Write(sw, r, problems.Internal("Something went wrong"))
			}
		}()
		next.ServeHTTP(sw, r)
	})
}
