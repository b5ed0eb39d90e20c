package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type ctxKey string

const ctxUserID ctxKey = "userId"

// 身份由前置网关解析后通过请求头传入。
const (
	HeaderUserID  = "X-User-ID"
	HeaderConsent = "X-Tracking-Consent"
)

// Identity 把 X-User-ID 写入请求上下文，缺失时不拦截。
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxUserID, id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser 拒绝没有身份的请求。
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireConsent 拒绝明确关闭了行为追踪的用户（X-Tracking-Consent: false）。
func RequireConsent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get(HeaderConsent), "false") {
			fail(w, http.StatusForbidden, "user has not consented to tracking")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext 返回请求的用户 ID，未认证时为空。
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxUserID).(string)
	return id
}

// requestLogger 把带 request_id 的 logger 放进请求上下文，并在请求结束时记录访问日志。
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			r = r.WithContext(l.WithContext(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				l.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("size", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
