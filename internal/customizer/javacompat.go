package customizer

import (
	"path/filepath"
	"regexp"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// Flags in the 3.x jvm.options that newer JVMs refuse to start with.
var legacyJVMFlags = regexp.MustCompile(`^(` +
	`-XX:\+UseParNewGC|-XX:\+UseConcMarkSweepGC|-XX:\+CMS\w+|-XX:CMS\w+=\S*|` +
	`-XX:\+UseCMSInitiatingOccupancyOnly|-XX:ThreadPriorityPolicy=42|` +
	`-XX:\+PrintGC\w*|-XX:\+PrintHeapAtGC|-XX:\+PrintTenuringDistribution|` +
	`-XX:\+PrintPromotionFailure|-XX:PrintFLSStatistics=\d+|-Xloggc:\S*|` +
	`-XX:\+UseGCLogFileRotation|-XX:NumberOfGCLogFiles=\d+|-XX:GCLogFileSize=\S+|` +
	`-Xss256k)\s*$`)

var javaCompatVersions = version.MustRange(">= 3.0, < 4.0")

// JavaCompat comments out CMS, GC-logging and thread-stack flags of 3.x
// distributions so they start on Java 9 and later.
type JavaCompat struct{}

func (JavaCompat) Name() string { return "java-compat" }

func (JavaCompat) Applies(v version.Version, _ models.Platform) bool {
	return javaCompatVersions.Contains(v)
}

func (j JavaCompat) Apply(root string, c Context) error {
	t := LineToggler{
		Label:   j.Name(),
		File:    filepath.Join("conf", "jvm.options"),
		Pattern: legacyJVMFlags,
		Mode:    Disable,
	}
	return t.Apply(root, c)
}
