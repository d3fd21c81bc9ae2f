// Package ports defines the interfaces the match service depends on, so the
// engine never imports a concrete registry or audit sink.
package ports

//go:generate mockgen -source=registry.go -destination=mocks/registry_mocks.go -package=mocks
//go:generate mockgen -source=audit.go -destination=mocks/audit_mocks.go -package=mocks
