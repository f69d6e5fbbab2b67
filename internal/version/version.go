package version

import "strings"

// Version is set at build time with:
// -ldflags "-X github.com/izzyreal/wsbridge/internal/version.Version=vX.Y.Z"
var Version = "dev"

func Current() string {
	v := strings.TrimSpace(Version)
	if v == "" {
		return "dev"
	}
	return v
}

// Agent is the product token sent as the client agent, e.g. "wsbridge/v1.2.0".
func Agent() string {
	return "wsbridge/" + Current()
}
