// Package version provides build-time version information, set with -ldflags -X.
package version

var (
	// Version is the release tag, "dev" for local builds
	Version = "dev"
	// Commit is the git commit hash
	Commit = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Info returns the build metadata of service as served by /v1/version and `adm version`
func Info(service string) map[string]string {
	return map[string]string{
		"service":   service,
		"version":   Version,
		"commit":    Commit,
		"buildTime": BuildTime,
	}
}
