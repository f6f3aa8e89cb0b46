// ABOUTME: Version information for brownnoise
// ABOUTME: Version is overridable at build time with -ldflags
package version

import "fmt"

// Version is the release version, set with -ldflags "-X .../version.Version=x.y.z"
var Version = "0.1.0"

const (
	// Product is the user-facing product name
	Product = "brownnoise"

	// Manufacturer is advertised over mDNS and in the remote state
	Manufacturer = "harperreed"
)

// String returns "product version"
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
