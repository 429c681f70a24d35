// Package version holds build identity, overridden at link time:
//
//	go build -ldflags "-X github.com/iotku/subdonic/internal/version.Version=v1.2.0 -X github.com/iotku/subdonic/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

const (
	AppName        = "Subdonic"
	AppDescription = "Discord music bot streaming from a Subsonic library"
)

var (
	Version = "dev"
	Commit  = "none"
)

// String returns a one-line build identifier.
func String() string {
	return AppName + " " + Version + " (" + Commit + ")"
}
