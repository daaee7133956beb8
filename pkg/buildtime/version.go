package buildtime

// overridden at build time:
//
//	go build -ldflags "-X github.com/YounessBoumeshouli/MLOps/pkg/buildtime.version=v1.2.3"
var (
	version  = "1.0.0"
	revision = "unknown"
)

// version string when this binary has been built.
func VERSION() string {
	return version
}

func GIT_REVISION() string {
	return revision
}

func VersionString() string {
	return version + " (commit: " + revision + ")"
}
