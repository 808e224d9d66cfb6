package provider

import "context"

// Provider is the outbound push delivery port.
type Provider interface {
	Send(ctx context.Context, payload *Payload) (*Result, error)
}

// Result captures what the provider reported for an accepted dispatch.
type Result struct {
	ProviderID string
	Recipients int
}
