// Package version holds the build version of the service.
package version

// Version is the application version, overridden at build time with
// -ldflags "-X github.com/ndewijer/Crypto-Dashboard-Backend/internal/version.Version=1.2.3".
var Version = "dev"
