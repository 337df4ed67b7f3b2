// Package geocode resolves free-form addresses to coordinates by trying a
// prioritized list of providers, sharing one cache and one outcome log
// across all lookups in a run.
package geocode

import (
	"context"
	"fmt"
)

// Provider is a single geocoding backend.
type Provider interface {
	// Name is the display name used in outcome logs.
	Name() string
	// Available reports whether the provider has what it needs (credentials)
	// to be called at all.
	Available() bool
	// Geocode looks up one address. A nil result with a nil error means the
	// provider answered but found nothing.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result is a provider match.
type Result struct {
	Latitude  float64
	Longitude float64
	Label     string // provider's formatted address, if any
}

// HTTPError is a transport failure or a non-200 response.
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return e.Err.Error()
}

func (e *HTTPError) Unwrap() error { return e.Err }

// ProviderError is a failure reported by the geocoding service itself, or a
// response it sent that could not be understood.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
