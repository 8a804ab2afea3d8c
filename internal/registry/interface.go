package registry

import "context"

// Registry tracks which rooms this instance currently serves, so
// external routers can discover occupied rooms. Entries carry a TTL
// and are refreshed by a heartbeat while occupied.
type Registry interface {
	Register(ctx context.Context, roomID string) error
	Deregister(ctx context.Context, roomID string) error
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
	Close() error
}

// NewNoop returns a registry that does nothing, for standalone runs
// without Redis.
func NewNoop() Registry {
	return noopRegistry{}
}

type noopRegistry struct{}

func (noopRegistry) Register(context.Context, string) error   { return nil }
func (noopRegistry) Deregister(context.Context, string) error { return nil }
func (noopRegistry) StartHeartbeat(context.Context) error     { return nil }
func (noopRegistry) StopHeartbeat()                           {}
func (noopRegistry) Close() error                             { return nil }
