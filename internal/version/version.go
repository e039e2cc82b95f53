// Package version carries the build version, set at link time.
package version

var (
	// Version is overridden by -ldflags at build time.
	Version = "0.1.0"
)

// Current returns the build version.
func Current() string {
	return Version
}
