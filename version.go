package standalone

// Version is the current version of the go-standalone library
const Version = "0.1.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// ManagementAPI is the management wire dialect spoken by the default client
	ManagementAPI string
	// ShutdownMarker is the console marker this build watches for
	ShutdownMarker string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:        Version,
		ManagementAPI:  "http-json",
		ShutdownMarker: ShutdownMarker,
	}
}
