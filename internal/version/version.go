package version

// These variables are set at build time via -ldflags
// Example: go build -ldflags "-X github.com/pysugar/ads-account-gateway/internal/version.Version=v0.3.0"
var (
	// Version is the semantic version of the application
	Version = "dev"

	// Commit is the git commit hash
	Commit = "none"

	// BuildTime is the timestamp of the build
	BuildTime = "unknown"
)

// String renders the build identity for `adsgate version` and /healthz.
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}
