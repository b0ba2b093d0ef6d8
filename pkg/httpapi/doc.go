// Package httpapi exposes the broker over HTTP with a chi router.
//
// Routes:
//
//	GET    /health                              liveness
//	GET    /ready                               readiness (broker accepting work)
//	POST   /v1/notifications                    enqueue a notification
//	GET    /v1/notifications                    posted notifications and ranking
//	GET    /v1/notifications/snoozed            snoozed notifications (?user=&pkg=)
//	DELETE /v1/notifications/{pkg}/{id}         app cancel (?tag=&uid=&user=)
//	POST   /v1/notifications/{key}/snooze       snooze (?for=15m or ?criterion=id)
//	POST   /v1/notifications/{key}/unsnooze     repost a snoozed notification
//	POST   /v1/notifications/{key}/click        user click
//	POST   /v1/notifications/{key}/clear        user dismissal (?surface=&sentiment=)
//	DELETE /v1/packages/{pkg}/notifications     app cancel-all (?uid=&user=)
//	GET    /v1/listeners/{id}/events            listener event stream (text/event-stream)
//	POST   /v1/listeners/{id}/hints             request listener hints (?hints=)
//	GET    /v1/history                          recently removed (?limit=)
//	GET    /v1/diagnostics                      broker counters
//
// Mutations answer 202 Accepted once the broker queued them; the outcome is
// observed through the event stream or the read endpoints. Caller errors
// answer 400 or 403 and a stopped broker 503. Every response carries an
// X-Request-ID header, and RequestIDExtractor puts the same id into logs.
package httpapi
