/*
Package handler provides the HTTP handlers and routing setup for the relay server.

This file defines AppDeps, the explicitly constructed dependency bundle
injected into every handler. The registry and broadcaster are passed in
rather than reached through globals so the core stays testable in isolation.
*/
package handler

import (
	"chatrelay/internal/app/directory"
	"chatrelay/internal/app/relay"
	"chatrelay/internal/configs"
)

// AppDeps bundles the collaborators the HTTP layer needs.
type AppDeps struct {
	Config      *configs.AppConfig
	Directory   directory.Service
	Registry    *relay.Registry
	Broadcaster *relay.Broadcaster
}

// RelayOptions derives the relay core's policy options from configuration.
func (d *AppDeps) RelayOptions() relay.Options {
	return relay.Options{
		EchoSelf:           d.Config.EchoSelf,
		RemoveOnDisconnect: d.Config.RemoveOnDisconnect,
		QueueSize:          d.Config.SendQueueSize,
	}
}
