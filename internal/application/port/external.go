package port

import (
	"context"
	"io"

	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
)

// Backend reports whether a real backend was configured at startup
type Backend interface {
	Configured() bool
}

// DocumentInfo describes an inspected upload
type DocumentInfo struct {
	Extension string
	MIMEType  string
	Size      int
	Pages     int
}

// DocumentInspector verifies that an upload's content matches its name
type DocumentInspector interface {
	Inspect(ctx context.Context, name string, content []byte) (*DocumentInfo, error)
}

// ReportExporter renders claims into a downloadable report
type ReportExporter interface {
	WriteClaims(w io.Writer, claims []*entity.Claim) error
	ContentType() string
	FileExtension() string
}

// RoleCache memoizes role lookups per user
type RoleCache interface {
	Get(userID string) (string, bool)
	Set(userID, role string)
	Invalidate(userID string)
}

// EventPublisher delivers domain events to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event)
}

// AsyncEventPublisher delivers events without waiting for subscribers
type AsyncEventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// EventBus is an EventPublisher that also accepts subscriptions
type EventBus interface {
	EventPublisher
	Subscribe(eventType event.Type, handler func(ctx context.Context, evt *event.Event) error) (unsubscribe func())
}
