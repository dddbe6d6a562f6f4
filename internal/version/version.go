package version

// Version is the current version of coinwatch.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/jhyeon-dev/coinwatch/internal/version.Version=1.2.3"
var Version = "v0.1.0"

// GetVersion returns the current version of the binary.
func GetVersion() string {
	return Version
}
