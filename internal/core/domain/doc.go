// Package domain contains the core business entities and rules for the
// keepstack indexing and answering pipeline. It has no dependencies on
// adapters or external services.
package domain
