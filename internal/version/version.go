package version

// Version is the current version of PomStud.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/ManasDasri/PomStud/internal/version.Version=v1.0.0'"
var Version = "dev"
