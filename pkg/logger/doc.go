// Package logger builds the structured loggers used across notifyd.
//
// New returns a *slog.Logger configured through Option values (format, level,
// static attributes, context extractors). Records are routed through
// LogHandlerDecorator, which pulls attributes out of context.Context on every
// Handle call; the task name attached with WithTask is always extracted so
// that logs emitted by queued pipeline work carry the task that produced them.
//
// Attribute helpers in attr.go (NotificationKey, Package, ListenerID, Reason,
// Error and friends) keep attribute names consistent between packages:
//
//	log.LogAttrs(ctx, slog.LevelWarn, "notification dropped",
//	    logger.NotificationKey(key),
//	    logger.Package(pkg),
//	    logger.Reason(reason),
//	)
package logger
