// Package services implements the driving port interfaces.
// Services contain the core business logic - indexing, debouncing,
// intent routing and answering - and orchestrate calls to driven
// ports (adapters).
package services
