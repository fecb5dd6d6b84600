package env

import (
	"os"
	"path/filepath"
)

// Daemon is set when running as the management server.
var Daemon bool = false

// Version of this program, set by the version command at startup.
var Version string = "dev"

// (default: %USERPROFILE%/.embedded-cassandra on Windows, $HOME/.embedded-cassandra on Linux)
var BaseDir string = GetBaseDir()

/**
 * Get the base directory for configuration and runtime directories
 * @returns {string} Returns the base directory path
 */
func GetBaseDir() string {
	if dir := os.Getenv("EMBEDDED_CASSANDRA_HOME"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".embedded-cassandra")
	}
	return filepath.Join(homeDir, ".embedded-cassandra")
}

// RunDir holds one private runtime directory per node run.
func RunDir() string {
	return filepath.Join(BaseDir, "run")
}

// LogDir is the default log location in server mode.
func LogDir() string {
	return filepath.Join(BaseDir, "logs")
}
