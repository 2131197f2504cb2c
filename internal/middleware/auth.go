package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/exprgate/exprgate/internal/auth"
	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/model"
)

// QuotaStore consumes one use of an API key.
type QuotaStore interface {
	Decrement(ctx context.Context, key string) (model.KeyStatus, error)
}

// QuotaConfig holds configuration for the quota middleware.
type QuotaConfig struct {
	Logger  *slog.Logger
	Store   QuotaStore
	Metrics metrics.Recorder
}

// Quota returns a middleware that consumes one use of the caller's API key
// before the handler runs. Every refusal gets the same 401 body; the
// distinct outcome is only logged and counted.
func Quota(cfg QuotaConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := auth.KeyFromRequest(r)

			status := model.KeyUnknown
			var err error
			if key != "" {
				status, err = cfg.Store.Decrement(r.Context(), key)
			}

			if !status.OK() {
				attrs := []any{
					slog.String("reason", status.String()),
					slog.String("key_hint", model.KeyHint(key)),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				}
				if err != nil {
					attrs = append(attrs, slog.String("error", err.Error()))
					cfg.Logger.Error("quota check failed", attrs...)
				} else {
					cfg.Logger.Warn("quota check failed", attrs...)
				}
				recorder.IncQuotaDecision(quotaOutcome(status))
				writeError(w, http.StatusUnauthorized, MsgInvalidAPIKey)
				return
			}

			recorder.IncQuotaDecision(metrics.QuotaGranted)
			ctx := auth.ContextWithAPIKey(r.Context(), key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAPIKey records the caller's key without consuming quota. Requests
// without a key are rejected with the uniform 401.
func RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := auth.KeyFromRequest(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, MsgInvalidAPIKey)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithAPIKey(r.Context(), key)))
	})
}

func quotaOutcome(status model.KeyStatus) string {
	switch status {
	case model.KeyUnknown:
		return metrics.QuotaUnknown
	case model.KeyExhausted:
		return metrics.QuotaExhausted
	default:
		return metrics.QuotaUnavailable
	}
}
