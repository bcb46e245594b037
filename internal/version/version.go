package version

// Version is overridden at release time via
// -ldflags "-X github.com/bnema/mcpt/internal/version.Version=...".
var Version = "0.1.0-dev"
