package build

// Set at link time with -ldflags "-X github.com/rohmanhakim/asset-interceptor/internal/build.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

const Name = "asset-interceptor"

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// UserAgent identifies origin requests made by this build, e.g. "asset-interceptor/1.0.0".
func UserAgent() string {
	return Name + "/" + Version
}
