package driving

import (
	"context"
)

// ProviderTestResult reports the outcome of a provider capability test.
type ProviderTestResult struct {
	// Success is true when the provider produced a vector.
	Success bool

	// Dimensions is the length of the produced vector.
	Dimensions int

	// LatencyMs is the round-trip time of the test request.
	LatencyMs int64

	// Error holds the failure message when Success is false.
	Error string
}

// ProviderManager controls the active embedding capability at runtime.
type ProviderManager interface {
	// ActiveProvider returns the ID of the currently active provider.
	ActiveProvider() string

	// ListProviders returns the supported provider IDs.
	ListProviders() []string

	// SwitchProvider activates a different provider. The new provider
	// is initialised and pinged before it becomes active; on failure
	// the previous provider remains current. An unsupported ID fails
	// with domain.ErrUnknownProvider.
	SwitchProvider(ctx context.Context, id string) error

	// TestProvider embeds a sample text with the active provider and
	// reports dimensions and latency.
	TestProvider(ctx context.Context, text string) *ProviderTestResult
}
