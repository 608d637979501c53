package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campusmarket/campusmarket/internal/model"
	"github.com/campusmarket/campusmarket/internal/store"
)

// NotificationRepository mirrors a user's notifications and their read
// state.
type NotificationRepository struct {
	remote NotificationRemote
	store  NotificationStore
	flight *inflight
	log    *slog.Logger
	inst   *instruments
}

// NewNotificationRepository creates a NotificationRepository.
func NewNotificationRepository(remote NotificationRemote, st NotificationStore, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{remote: remote, store: st, flight: newInflight(), log: logger, inst: newInstruments(logger)}
}

// Refresh fetches and caches the user's notifications.
func (r *NotificationRepository) Refresh(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	const op = "refresh notifications"
	key := "notifications/" + userID + "?unreadOnly=" + strconv.FormatBool(unreadOnly)

	ctx, span := r.inst.tracer.Start(ctx, spanNotificationsRefresh, trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Bool("notifications.unread_only", unreadOnly),
	))
	defer span.End()

	gen := r.flight.begin(key)
	defer r.flight.done(key, gen)
	ns, err := r.remote.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, failOp(ctx, r.inst, r.log, span, op, err)
	}
	err = r.flight.commit(ctx, key, gen, func() error {
		return r.store.UpsertNotifications(ctx, ns)
	})
	if err != nil {
		return nil, failOp(ctx, r.inst, r.log, span, op, err)
	}
	span.SetAttributes(attribute.Int("notifications.count", len(ns)))
	return ns, nil
}

// MarkRead marks a notification read on the server, then locally.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.setRead(ctx, id, true)
}

// MarkUnread marks a notification unread on the server, then locally.
func (r *NotificationRepository) MarkUnread(ctx context.Context, id string) error {
	return r.setRead(ctx, id, false)
}

func (r *NotificationRepository) setRead(ctx context.Context, id string, read bool) error {
	op := "mark notification read"
	if !read {
		op = "mark notification unread"
	}

	ctx, span := r.inst.tracer.Start(ctx, spanNotificationsMark, trace.WithAttributes(
		attribute.String("notification.id", id),
		attribute.Bool("notification.read", read),
	))
	defer span.End()

	if err := r.remote.SetNotificationRead(ctx, id, read); err != nil {
		return failOp(ctx, r.inst, r.log, span, op, err)
	}
	if err := r.store.SetNotificationRead(ctx, id, read); err != nil {
		return failOp(ctx, r.inst, r.log, span, op, fmt.Errorf("caching read state of %q: %w", id, err))
	}
	return nil
}

// MarkAllRead marks every cached unread notification of the user as read.
// It is best-effort: a notification that fails is logged and skipped. It
// returns how many were marked.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread, err := r.store.NotificationsForUser(ctx, userID, true)
	if err != nil {
		return 0, fmt.Errorf("listing unread notifications: %w", err)
	}

	marked := 0
	for _, n := range unread {
		if err := ctx.Err(); err != nil {
			return marked, model.SupersededError("mark all notifications read", err)
		}
		if err := r.setRead(ctx, n.ID, true); err != nil {
			r.log.Warn("skipping notification", "notification_id", n.ID, "kind", model.KindBestEffort, "error", err)
			continue
		}
		marked++
	}
	r.log.Info("notifications marked read", "user_id", userID, "marked", marked, "unread", len(unread))
	return marked, nil
}

// ForUser returns the user's cached notifications, newest first.
func (r *NotificationRepository) ForUser(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	return r.store.NotificationsForUser(ctx, userID, unreadOnly)
}

// UnreadCount returns the number of cached unread notifications.
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	return r.store.UnreadCount(ctx, userID)
}

// Watch follows the user's cached notifications.
func (r *NotificationRepository) Watch(ctx context.Context, userID string, unreadOnly bool) *store.Live[[]model.Notification] {
	return r.store.WatchNotifications(ctx, userID, unreadOnly)
}
