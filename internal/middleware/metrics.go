package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// unmatchedRoute はルートに一致しなかったリクエストのラベル。
const unmatchedRoute = "unmatched"

// RequestObserver はHTTPリクエストの計測値を受け取る。metrics.Collectorが実装する。
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// NewMetricsMiddleware はリクエストの件数と処理時間を記録するミドルウェアを返す。
// ラベルにはchiのルートパターン（例: /api/drinks/{id}）を使う。
func NewMetricsMiddleware(observer RequestObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := wrapRecorder(w)

			next.ServeHTTP(rec, r)

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			observer.ObserveHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}
