package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/notifykit/notifyd/pkg/binder"
	"github.com/notifykit/notifyd/pkg/broker"
	"github.com/notifykit/notifyd/pkg/httpserver"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
)

// API serves the broker over HTTP.
type API struct {
	broker       *broker.Broker
	logger       *slog.Logger
	streamBuffer int
	keepAlive    time.Duration
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger for request failures and streams.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStreamBuffer sets how many events a listener stream buffers before
// the slow client is disconnected.
func WithStreamBuffer(n int) Option {
	return func(a *API) {
		if n > 0 {
			a.streamBuffer = n
		}
	}
}

// WithKeepAlive sets the interval of comment lines sent on idle streams.
func WithKeepAlive(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.keepAlive = d
		}
	}
}

// New creates the API for b.
func New(b *broker.Broker, opts ...Option) (*API, error) {
	if b == nil {
		return nil, ErrNilBroker
	}
	a := &API{
		broker:       b,
		logger:       logger.Discard(),
		streamBuffer: 64,
		keepAlive:    15 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("httpapi"))
	return a, nil
}

// Router returns the chi router with every route mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/health", httpserver.HealthCheckHandler(a.logger))
	r.Get("/ready", httpserver.HealthCheckHandler(a.logger, a.broker.Ping))

	path := binder.Path(chi.URLParam)
	query := binder.Query()
	body := binder.JSON()

	r.Route("/v1", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", wrap(a.logger, a.enqueue, body))
			r.Get("/", wrap(a.logger, a.posted))
			r.Get("/snoozed", wrap(a.logger, a.snoozed, query))
			r.Delete("/{pkg}/{id}", wrap(a.logger, a.cancel, path, query))
			r.Post("/{key}/snooze", wrap(a.logger, a.snooze, path, query))
			r.Post("/{key}/unsnooze", wrap(a.logger, a.unsnooze, path))
			r.Post("/{key}/click", wrap(a.logger, a.click, path))
			r.Post("/{key}/clear", wrap(a.logger, a.clear, path, query))
		})
		r.Delete("/packages/{pkg}/notifications", wrap(a.logger, a.cancelAll, path, query))
		r.Get("/listeners/{id}/events", a.stream)
		r.Post("/listeners/{id}/hints", wrap(a.logger, a.hints, path, query))
		r.Get("/history", wrap(a.logger, a.history, query))
		r.Get("/diagnostics", wrap(a.logger, a.diagnostics))
	})
	return r
}

type enqueueRequest struct {
	Package           string                 `json:"package"`
	OpPackage         string                 `json:"op_package,omitempty"`
	UID               int                    `json:"uid"`
	PID               int                    `json:"pid,omitempty"`
	UserID            int                    `json:"user_id"`
	Tag               string                 `json:"tag,omitempty"`
	ID                int                    `json:"id"`
	ForegroundService bool                   `json:"foreground_service,omitempty"`
	Payload           *notifications.Payload `json:"payload"`
}

type keyResponse struct {
	Key string `json:"key"`
}

func (a *API) enqueue(ctx context.Context, req enqueueRequest) response {
	er := broker.EnqueueRequest{
		Package:           req.Package,
		OpPackage:         req.OpPackage,
		CallingUID:        req.UID,
		CallingPID:        req.PID,
		UserID:            req.UserID,
		Tag:               req.Tag,
		ID:                req.ID,
		Payload:           req.Payload,
		ForegroundService: req.ForegroundService,
	}
	if err := a.broker.Enqueue(ctx, er); err != nil {
		return fail(err)
	}
	return accepted(keyResponse{Key: er.Key()})
}

type cancelRequest struct {
	Package string `path:"pkg"`
	ID      int    `path:"id"`
	Tag     string `query:"tag"`
	UID     int    `query:"uid"`
	UserID  int    `query:"user"`
}

func (a *API) cancel(ctx context.Context, req cancelRequest) response {
	err := a.broker.Cancel(ctx, broker.CancelRequest{
		Package:    req.Package,
		CallingUID: req.UID,
		UserID:     req.UserID,
		Tag:        req.Tag,
		ID:         req.ID,
	})
	if err != nil {
		return fail(err)
	}
	return accepted(keyResponse{Key: notifications.Key(req.UserID, req.Package, req.ID, req.Tag)})
}

type cancelAllRequest struct {
	Package string `path:"pkg"`
	UID     int    `query:"uid"`
	UserID  int    `query:"user"`
}

func (a *API) cancelAll(ctx context.Context, req cancelAllRequest) response {
	err := a.broker.CancelAll(ctx, broker.CancelAllRequest{
		Package:    req.Package,
		CallingUID: req.UID,
		UserID:     req.UserID,
	})
	if err != nil {
		return fail(err)
	}
	return accepted(nil)
}

type snoozeRequest struct {
	Key       string        `path:"key"`
	For       time.Duration `query:"for"`
	Criterion string        `query:"criterion"`
}

func (a *API) snooze(ctx context.Context, req snoozeRequest) response {
	var err error
	switch {
	case req.Criterion != "":
		err = a.broker.SnoozeWithCriterion(ctx, req.Key, req.Criterion)
	case req.For > 0:
		err = a.broker.Snooze(ctx, req.Key, req.For)
	default:
		err = ErrMissingSnooze
	}
	if err != nil {
		return fail(err)
	}
	return accepted(keyResponse{Key: req.Key})
}

type keyRequest struct {
	Key string `path:"key"`
}

func (a *API) unsnooze(ctx context.Context, req keyRequest) response {
	if err := a.broker.Unsnooze(ctx, req.Key); err != nil {
		return fail(err)
	}
	return accepted(keyResponse{Key: req.Key})
}

func (a *API) click(ctx context.Context, req keyRequest) response {
	if err := a.broker.OnNotificationClick(ctx, req.Key); err != nil {
		return fail(err)
	}
	return accepted(keyResponse{Key: req.Key})
}

type clearRequest struct {
	Key       string `path:"key"`
	Surface   int    `query:"surface"`
	Sentiment int    `query:"sentiment"`
}

func (a *API) clear(ctx context.Context, req clearRequest) response {
	err := a.broker.OnNotificationClear(ctx, req.Key,
		notifications.DismissalSurface(req.Surface),
		notifications.UserSentiment(req.Sentiment),
	)
	if err != nil {
		return fail(err)
	}
	return accepted(keyResponse{Key: req.Key})
}

type postedResponse struct {
	Notifications []notifications.View     `json:"notifications"`
	Ranking       notifications.RankingMap `json:"ranking"`
}

func (a *API) posted(context.Context, struct{}) response {
	return ok(postedResponse{Notifications: a.broker.Posted(), Ranking: a.broker.Ranking()})
}

type snoozedRequest struct {
	UserID  int    `query:"user"`
	Package string `query:"pkg"`
}

func (a *API) snoozed(_ context.Context, req snoozedRequest) response {
	return ok(a.broker.Snoozed(req.UserID, req.Package))
}

type hintsRequest struct {
	ID    string `path:"id"`
	Hints uint32 `query:"hints"`
}

func (a *API) hints(ctx context.Context, req hintsRequest) response {
	if err := a.broker.RequestHints(ctx, req.ID, notifications.ListenerHints(req.Hints)); err != nil {
		return fail(err)
	}
	return ok(a.broker.Hints())
}

type historyRequest struct {
	Limit int `query:"limit"`
}

func (a *API) history(_ context.Context, req historyRequest) response {
	return ok(a.broker.History(req.Limit))
}

func (a *API) diagnostics(context.Context, struct{}) response {
	return ok(a.broker.Diagnostics())
}
