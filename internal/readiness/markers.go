package readiness

import (
	"fmt"
	"regexp"

	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// Markers are the output patterns that end a startup wait.
type Markers struct {
	Ready []*regexp.Regexp
	Fatal []*regexp.Regexp
}

var commonFatal = []string{
	`Exception encountered during startup`,
	`Could not create the Java Virtual Machine`,
	`Unrecognized VM option`,
	`Could not find or load main class`,
	`Error: A fatal exception has occurred`,
	`Address already in use`,
}

var markerTable = []struct {
	versions version.Range
	ready    []string
	fatal    []string
}{
	{
		versions: version.MustRange("< 4.0"),
		ready:    []string{`Starting listening for CQL clients on`},
		fatal:    []string{`Cassandra \S+ requires Java`},
	},
	{
		versions: version.MustRange(">= 4.0"),
		ready:    []string{`Starting listening for CQL clients on`, `Startup complete`},
		fatal:    []string{`Unsupported Java version`},
	},
}

// DefaultMarkers returns the markers for a server version.
func DefaultMarkers(v version.Version) Markers {
	var ready, fatal []string
	for _, row := range markerTable {
		if row.versions.Contains(v) {
			ready = append(ready, row.ready...)
			fatal = append(fatal, row.fatal...)
		}
	}
	fatal = append(fatal, commonFatal...)
	m, err := CompileMarkers(ready, fatal)
	if err != nil {
		panic(err)
	}
	return m
}

// CompileMarkers compiles caller supplied patterns.
func CompileMarkers(ready, fatal []string) (Markers, error) {
	var m Markers
	for _, p := range ready {
		re, err := regexp.Compile(p)
		if err != nil {
			return Markers{}, fmt.Errorf("ready marker %q: %w", p, err)
		}
		m.Ready = append(m.Ready, re)
	}
	for _, p := range fatal {
		re, err := regexp.Compile(p)
		if err != nil {
			return Markers{}, fmt.Errorf("fatal marker %q: %w", p, err)
		}
		m.Fatal = append(m.Fatal, re)
	}
	return m, nil
}

// Override replaces the ready and/or fatal set when the caller supplied one.
func (m Markers) Override(ready, fatal []string) (Markers, error) {
	custom, err := CompileMarkers(ready, fatal)
	if err != nil {
		return Markers{}, err
	}
	if len(custom.Ready) > 0 {
		m.Ready = custom.Ready
	}
	if len(custom.Fatal) > 0 {
		m.Fatal = custom.Fatal
	}
	return m, nil
}

func matchAny(res []*regexp.Regexp, line string) bool {
	for _, re := range res {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
