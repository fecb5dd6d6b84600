package customizer

import (
	"path/filepath"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// GC logging set up by the environment scripts of pre-4.0 servers writes to
// a log dir layout the runtime directory does not keep and uses flags removed in Java 9.
var (
	unixGCLogging    = `^JVM_OPTS="\$JVM_OPTS -(Xloggc:|XX:\+PrintGC|XX:\+UseGCLogFileRotation|XX:NumberOfGCLogFiles|XX:GCLogFileSize)`
	windowsGCLogging = `^\$env:JVM_OPTS="\$env:JVM_OPTS -(Xloggc:|XX:\+PrintGC|XX:\+UseGCLogFileRotation|XX:NumberOfGCLogFiles|XX:GCLogFileSize)`
)

// EnvScriptToggles are the default environment-script line toggles.
func EnvScriptToggles() []Customizer {
	below4 := version.MustRange("< 4.0")
	return []Customizer{
		DisableLines("env-gc-logging-unix", filepath.Join("conf", "cassandra-env.sh"), unixGCLogging, below4, models.PlatformUnix),
		DisableLines("env-gc-logging-windows", filepath.Join("conf", "cassandra-env.ps1"), windowsGCLogging, below4, models.PlatformWindows),
	}
}

// DefaultPipeline runs, in order: the cassandra.yaml patch, the JVM options
// rewrite, the Java compatibility patch, the environment-script toggles and
// the JMX port patches for each platform.
func DefaultPipeline() *Pipeline {
	p := NewPipeline(ConfigFile{}, JVMOptions{}, JavaCompat{})
	p.Append(EnvScriptToggles()...)
	return p.Append(UnixJMXPort(), WindowsJMXPort())
}
