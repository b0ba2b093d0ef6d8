package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/notifykit/notifyd/pkg/logger"
)

// bind fills a request value from one source.
type bind func(r *http.Request, v any) error

// handlerFunc is a typed endpoint: R is bound from the request before fn
// runs.
type handlerFunc[R any] func(ctx context.Context, req R) response

// wrap adapts fn to http.HandlerFunc. Binding failures are answered without
// calling fn; server-side failures are logged.
func wrap[R any](log *slog.Logger, fn handlerFunc[R], binders ...bind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		for _, b := range binders {
			if err := b(r, &req); err != nil {
				write(log, w, r, fail(err))
				return
			}
		}
		write(log, w, r, fn(r.Context(), req))
	}
}

func write(log *slog.Logger, w http.ResponseWriter, r *http.Request, resp response) {
	if j, ok := resp.(jsonResponse); ok && j.status >= http.StatusInternalServerError {
		log.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", j.status),
			slog.String("error", j.body.Error.Message),
		)
	}
	if err := resp.render(w, r); err != nil {
		log.LogAttrs(r.Context(), slog.LevelWarn, "write response", logger.Error(err))
	}
}
