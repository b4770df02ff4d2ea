package handler

import (
	"zone/internal/app/library"
	"zone/internal/app/ticket"
	"zone/internal/app/zone"
	"zone/internal/configs"
	"zone/internal/pkg/pow"
)

// AppDeps carries everything the HTTP surface needs.
type AppDeps struct {
	Zone    *zone.Zone
	Tickets *ticket.Broker
	Config  *configs.AppConfig

	// Library may be nil when no catalog is configured.
	Library *library.Library

	// Pow is nil when the proof-of-work gate is disabled.
	Pow *pow.Manager
}
