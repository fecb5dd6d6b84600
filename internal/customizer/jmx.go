package customizer

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

var errNoJMXAssignment = errors.New("JMX_PORT assignment not found")

// JMXPort rewrites the JMX_PORT assignment of one environment script.
type JMXPort struct {
	platform   models.Platform
	file       string
	assignment *regexp.Regexp
	format     string
}

// UnixJMXPort patches conf/cassandra-env.sh.
func UnixJMXPort() JMXPort {
	return JMXPort{
		platform:   models.PlatformUnix,
		file:       filepath.Join("conf", "cassandra-env.sh"),
		assignment: regexp.MustCompile(`(?m)^([ \t]*)JMX_PORT=["']?\d*["']?(\r?)$`),
		format:     `${1}JMX_PORT="%d"${2}`,
	}
}

// WindowsJMXPort patches conf/cassandra-env.ps1.
func WindowsJMXPort() JMXPort {
	return JMXPort{
		platform:   models.PlatformWindows,
		file:       filepath.Join("conf", "cassandra-env.ps1"),
		assignment: regexp.MustCompile(`(?m)^([ \t]*)\$JMX_PORT[ \t]*=[ \t]*["']?\d*["']?(\r?)$`),
		format:     `${1}$$JMX_PORT="%d"${2}`,
	}
}

func (j JMXPort) Name() string { return "jmx-port-" + string(j.platform) }

func (j JMXPort) Applies(_ version.Version, p models.Platform) bool {
	return p == j.platform
}

func (j JMXPort) Apply(root string, c Context) error {
	port, ok := c.Settings.Port(settings.JMX)
	if !ok {
		return nil
	}
	return rewriteFile(j.Name(), filepath.Join(root, j.file), func(data []byte) ([]byte, error) {
		if !j.assignment.Match(data) {
			return nil, errNoJMXAssignment
		}
		return j.assignment.ReplaceAll(data, []byte(fmt.Sprintf(j.format, port))), nil
	})
}
