package version

// Version is set at build time: -ldflags "-X timeroast/internal/version.Version=v1.0.0"
var Version = "dev"
