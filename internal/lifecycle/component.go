package lifecycle

import "context"

// Component is something with a start and a stop, such as a telemetry exporter.
type Component interface {
	// Start prepares the component. It must be safe to call once per run.
	Start(ctx context.Context) error

	// Stop flushes and releases the component within the context deadline.
	Stop(ctx context.Context) error

	// Name is used in log lines. Must not be empty.
	Name() string
}
