// Package driving provides interfaces exposed by core services to external
// actors (primary/inbound ports). The HTTP API and the attachment watcher
// drive the application through these interfaces.
package driving
