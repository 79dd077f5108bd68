// Package common holds service-wide constants and logger setup shared by all
// binaries.
package common

// PackageName identifies the service in metrics and logs.
const PackageName = "provenance-backend"

// Version is set at build time via -ldflags.
var Version = "dev"
