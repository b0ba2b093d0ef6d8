package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/notifykit/notifyd/pkg/binder"
	"github.com/notifykit/notifyd/pkg/broker"
	"github.com/notifykit/notifyd/pkg/dispatch"
	"github.com/notifykit/notifyd/pkg/logger"
)

type streamRequest struct {
	ID         string `path:"id"`
	UserID     int    `query:"user"`
	Light      bool   `query:"light"`
	SeesHidden bool   `query:"hidden"`
}

// stream registers a listener for the lifetime of the request and writes
// its events as server-sent events. The first event is the current ranking.
// A client that falls behind by more than the stream buffer is dropped.
func (a *API) stream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	for _, b := range []bind{binder.Path(chi.URLParam), binder.Query()} {
		if err := b(r, &req); err != nil {
			write(a.logger, w, r, fail(err))
			return
		}
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		write(a.logger, w, r, fail(ErrStreamingFailed))
		return
	}
	if _, err := a.broker.CurrentRanking(req.ID); err == nil {
		write(a.logger, w, r, fail(ErrListenerExists))
		return
	}

	ctx := r.Context()
	observer := dispatch.NewStreamObserver(a.streamBuffer)
	defer observer.Close()
	sub := observer.Subscribe(ctx)
	defer sub.Close()

	trim := dispatch.TrimFull
	if req.Light {
		trim = dispatch.TrimLight
	}
	id, err := a.broker.RegisterListener(ctx, broker.ListenerRequest{
		ID:         req.ID,
		Component:  "http-stream",
		UserID:     req.UserID,
		Trim:       trim,
		SeesHidden: req.SeesHidden,
		Observer:   observer,
	})
	if err != nil {
		write(a.logger, w, r, fail(err))
		return
	}
	defer func() {
		if err := a.broker.Unregister(ctx, id); err != nil {
			a.logger.LogAttrs(ctx, slog.LevelWarn, "unregister stream listener", logger.ListenerID(id), logger.Error(err))
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(a.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, open := <-sub.Receive():
			if !open {
				a.logger.LogAttrs(ctx, slog.LevelWarn, "stream listener fell behind", logger.ListenerID(id))
				return
			}
			data, err := json.Marshal(msg.Data)
			if err != nil {
				a.logger.LogAttrs(ctx, slog.LevelError, "encode stream event", logger.ListenerID(id), logger.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", msg.Seq, msg.Data.Kind(), data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
