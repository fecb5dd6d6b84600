package models

import "runtime"

// Platform selects which launch and environment scripts apply
type Platform string

const (
	PlatformUnix    Platform = "unix"
	PlatformWindows Platform = "windows"
)

// CurrentPlatform maps runtime.GOOS onto a Platform.
func CurrentPlatform() Platform {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformUnix
}
