// Package service holds the application services behind the HTTP API.
package service

import (
	"context"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// publish sends evt when a publisher is wired
func publish(ctx context.Context, events port.EventPublisher, evt *event.Event) {
	if events == nil {
		return
	}
	events.Publish(ctx, evt)
}

// publishAsync hands evt off without waiting when the publisher supports it.
// Subscribers keep running after the request context ends.
func publishAsync(ctx context.Context, events port.EventPublisher, evt *event.Event) {
	if async, ok := events.(port.AsyncEventPublisher); ok {
		async.DispatchAsync(context.WithoutCancel(ctx), evt)
		return
	}
	publish(ctx, events, evt)
}
