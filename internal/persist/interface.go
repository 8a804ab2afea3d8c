package persist

import (
	"context"

	"github.com/Shaytris/Obsidian/internal/domain"
)

// Sink receives every accepted chat message for durable storage or
// downstream fan-out. Sink failures are logged by the caller and never
// block or fail delivery to connected peers.
type Sink interface {
	Save(ctx context.Context, msg *domain.PersistedMessage) error
	Close() error
}
