// Package service implements the business logic layer.
package service

import "time"

// ServiceConfig carries the tunables shared by services.
type ServiceConfig struct {
	// AppVersion reported in status and stamped into exports
	AppVersion string
	// SoftDeleteRetention how long soft-deleted notes are kept
	SoftDeleteRetention time.Duration
	// ExportSource the source tag written into export envelopes
	ExportSource string
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		AppVersion:          "dev",
		SoftDeleteRetention: 30 * 24 * time.Hour,
		ExportSource:        "anchored-sync-service",
	}
}
