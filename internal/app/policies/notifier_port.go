package policies

import (
	"context"

	"hoteldesk/internal/domain/shared/events"
)

// Notifier pushes change notifications to connected dashboards so they rebuild their availability view.
type Notifier interface {
	Notify(ctx context.Context, ev events.DomainEvent)
}
