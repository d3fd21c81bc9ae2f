package ports

import (
	"context"

	"penmatch/pkg/platform/audit"
)

// AuditPublisher records match decisions. Defined here so the match service
// does not depend on a particular publisher.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
