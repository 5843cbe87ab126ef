// Package buildinfo exposes version information set at link time:
//
//	go build -ldflags "-X github.com/yndnr/ledgergate-go/internal/infra/buildinfo.Version=v1.2.0"
//
// Commit and build time fall back to the VCS stamp recorded by the Go
// toolchain when not set.
package buildinfo
