package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/notifykit/notifyd/pkg/dispatch"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
)

// ListenerRequest registers an observer of posted notifications.
type ListenerRequest struct {
	// ID is generated when empty.
	ID        string
	Component string
	// UserID is the user whose notifications are observed, or
	// dispatch.UserAll.
	UserID     int
	Trim       dispatch.Trim
	SeesHidden bool
	Observer   dispatch.Observer
}

// AssistantRequest registers the assistant of a user.
type AssistantRequest struct {
	ID        string
	Component string
	UserID    int
	// Capabilities limits the adjustments the assistant may apply. Nil
	// allows all of them.
	Capabilities []notifications.AdjustmentType
	Observer     dispatch.Observer
}

// RegisterListener adds a listener. It receives the current ranking before
// any later event.
func (b *Broker) RegisterListener(ctx context.Context, req ListenerRequest) (string, error) {
	id, err := b.registry.Register(dispatch.Registration{
		ID:         req.ID,
		Component:  req.Component,
		UserID:     req.UserID,
		Trim:       req.Trim,
		Enabled:    true,
		SeesHidden: req.SeesHidden,
		Observer:   req.Observer,
	})
	if err != nil {
		return "", err
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "listener registered",
		logger.ListenerID(id),
		logger.UserID(req.UserID),
		slog.String("component", req.Component),
	)
	return id, b.submit(ctx, "listener-connected", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		reg, ok := b.registry.Get(id)
		if !ok {
			return
		}
		b.publish(ctx, []dispatch.Delivery{{
			ObserverID: id,
			Observer:   reg.Observer,
			Event:      dispatch.RankingUpdateEvent{Ranking: b.registry.RankingFor(reg, b.store.Posted())},
		}})
	})
}

// RegisterAssistant adds the assistant of a user. Only one assistant may
// serve a user.
func (b *Broker) RegisterAssistant(ctx context.Context, req AssistantRequest) (string, error) {
	id, err := b.registry.Register(dispatch.Registration{
		ID:           req.ID,
		Component:    req.Component,
		UserID:       req.UserID,
		Assistant:    true,
		Enabled:      true,
		Capabilities: req.Capabilities,
		Observer:     req.Observer,
	})
	if err != nil {
		return "", err
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "assistant registered",
		logger.ListenerID(id),
		logger.UserID(req.UserID),
		slog.String("component", req.Component),
	)
	return id, nil
}

// Unregister removes a listener or assistant. Hints it requested are
// withdrawn.
func (b *Broker) Unregister(ctx context.Context, id string) error {
	reg, err := b.registry.Unregister(id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownListener, err)
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "observer unregistered",
		logger.ListenerID(id),
		slog.Bool("assistant", reg.Assistant),
	)
	if reg.Hints == 0 {
		return nil
	}
	b.mu.Lock()
	b.refreshHintsLocked(ctx)
	b.unlock(ctx)
	return nil
}

// SetListenerEnabled pauses or resumes delivery to an observer.
func (b *Broker) SetListenerEnabled(id string, enabled bool) error {
	if err := b.registry.SetEnabled(id, enabled); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownListener, err)
	}
	return nil
}

// SetOnPostedTrim changes how much payload a listener receives.
func (b *Broker) SetOnPostedTrim(id string, trim dispatch.Trim) error {
	if err := b.registry.SetTrim(id, trim); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownListener, err)
	}
	return nil
}

// RequestHints records the effect suppression a listener asks for. The
// broker applies the union of every listener's hints.
func (b *Broker) RequestHints(ctx context.Context, id string, hints notifications.ListenerHints) error {
	if _, err := b.registry.SetHints(id, hints); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownListener, err)
	}
	b.mu.Lock()
	b.refreshHintsLocked(ctx)
	b.unlock(ctx)
	return nil
}

// Hints returns the hints currently in effect.
func (b *Broker) Hints() notifications.ListenerHints {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hints
}

func (b *Broker) refreshHintsLocked(ctx context.Context) {
	h := b.registry.Hints()
	if h == b.hints {
		return
	}
	b.hints = h
	b.addPlan(b.alerts.SetHints(h))
	b.publish(ctx, b.registry.HintsBatch(h))
	b.logger.LogAttrs(ctx, slog.LevelInfo, "listener hints changed", slog.Uint64("hints", uint64(h)))
}

// ActiveNotifications returns the posted notifications a listener may see,
// in rank order. With keys, only those notifications are returned.
func (b *Broker) ActiveNotifications(id string, keys ...string) ([]notifications.View, error) {
	reg, ok := b.registry.Get(id)
	if !ok {
		return nil, ErrUnknownListener
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(keys) == 0 {
		return b.registry.Visible(reg, b.store.Posted()), nil
	}
	records := make([]*notifications.Record, 0, len(keys))
	for _, k := range keys {
		if r := b.store.Find(k); r != nil {
			records = append(records, r)
		}
	}
	return b.registry.Visible(reg, records), nil
}

// SnoozedNotifications returns the snoozed notifications a listener may
// see.
func (b *Broker) SnoozedNotifications(id string) ([]notifications.View, error) {
	reg, ok := b.registry.Get(id)
	if !ok {
		return nil, ErrUnknownListener
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Visible(reg, b.snoozed.All()), nil
}

// CurrentRanking returns the ranking as the listener sees it.
func (b *Broker) CurrentRanking(id string) (notifications.RankingMap, error) {
	reg, ok := b.registry.Get(id)
	if !ok {
		return nil, ErrUnknownListener
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.RankingFor(reg, b.store.Posted()), nil
}

// ApplyAdjustment queues an assistant's adjustment. Fields outside the
// assistant's capabilities are dropped. An adjustment for an enqueued
// notification is applied when it posts; one for a posted notification is
// applied by the next ranking pass.
func (b *Broker) ApplyAdjustment(ctx context.Context, assistantID string, adj notifications.Adjustment) error {
	reg, ok := b.registry.Get(assistantID)
	if !ok {
		return ErrUnknownListener
	}
	if !reg.Assistant {
		return ErrNotAssistant
	}
	if err := validate.StructCtx(ctx, adj); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	adj, dropped := adj.Filter(reg.Allows)
	if len(dropped) > 0 {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "adjustment fields not permitted",
			logger.ListenerID(assistantID),
			logger.NotificationKey(adj.Key),
			slog.Any("dropped", dropped),
		)
	}
	if adj.Empty() {
		return nil
	}
	if adj.Issuer == "" {
		adj.Issuer = reg.Component
	}
	return b.submit(ctx, "adjust", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		if r := b.store.LastEnqueued(adj.Key); r != nil {
			r.AddAdjustment(adj)
			return
		}
		r := b.store.Find(adj.Key)
		if r == nil || !b.registry.Sees(reg, r.UserID(), false) {
			return
		}
		r.AddAdjustment(adj)
		b.requestRankingLocked(ctx)
	})
}

// NotificationsSeen marks notifications as seen by the user and tells the
// assistant.
func (b *Broker) NotificationsSeen(ctx context.Context, keys ...string) error {
	return b.submit(ctx, "seen", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		b.markSeenLocked(ctx, keys)
	})
}

func (b *Broker) markSeenLocked(ctx context.Context, keys []string) {
	byUser := make(map[int][]string)
	for _, k := range keys {
		r := b.store.Find(k)
		if r == nil || r.IsSeen() {
			continue
		}
		r.SetSeen()
		byUser[r.UserID()] = append(byUser[r.UserID()], k)
	}
	for userID, seen := range byUser {
		b.publish(ctx, b.registry.AssistantBatch(userID, dispatch.SeenEvent{Keys: seen}))
	}
}

// SetVisibility records which notifications the user can currently see.
// Newly visible notifications are marked seen.
func (b *Broker) SetVisibility(ctx context.Context, visible, hidden []string) error {
	return b.submit(ctx, "visibility", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		now := b.now()
		for _, k := range hidden {
			if r := b.store.Find(k); r != nil {
				r.SetVisible(false, now)
			}
		}
		for _, k := range visible {
			if r := b.store.Find(k); r != nil {
				r.SetVisible(true, now)
			}
		}
		b.markSeenLocked(ctx, visible)
	})
}
