package version

import "fmt"

const (
	// Major version component of the current release.
	Major = 0

	// Minor version component of the current release.
	Minor = 1

	// Patch version component of the current release.
	Patch = 0
)

// String returns the full version string.
func String() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}
