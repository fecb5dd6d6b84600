package customizer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// Marker prefixes every line this package comments out. Enabling a line
// strips it again, so toggling is reversible and idempotent.
const Marker = "#[embedded] "

// ToggleMode says what happens to matching lines.
type ToggleMode int

const (
	Disable ToggleMode = iota
	Enable
)

// LineToggler comments out or restores lines of one file. Pattern is matched
// against the uncommented text of each line.
type LineToggler struct {
	Label    string
	File     string
	Pattern  *regexp.Regexp
	Mode     ToggleMode
	Versions version.Range
	Platform models.Platform
}

func (t LineToggler) Name() string { return t.Label }

func (t LineToggler) Applies(v version.Version, p models.Platform) bool {
	if t.Platform != "" && t.Platform != p {
		return false
	}
	return t.Versions.Contains(v)
}

func (t LineToggler) Apply(root string, _ Context) error {
	return rewriteFile(t.Label, filepath.Join(root, t.File), func(data []byte) ([]byte, error) {
		lines, trailing := splitLines(data)
		for i, line := range lines {
			if t.Mode == Disable {
				lines[i] = disableLine(line, t.Pattern)
			} else {
				lines[i] = enableLine(line, t.Pattern)
			}
		}
		return joinLines(lines, trailing), nil
	})
}

func disableLine(line string, pattern *regexp.Regexp) string {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return line
	}
	if !pattern.MatchString(trimmed) {
		return line
	}
	return Marker + line
}

func enableLine(line string, pattern *regexp.Regexp) string {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return line
	}
	body := strings.TrimPrefix(trimmed, Marker)
	if body == trimmed {
		body = strings.TrimLeft(trimmed, "#")
		body = strings.TrimLeft(body, " ")
	}
	if !pattern.MatchString(strings.TrimLeft(body, " \t")) {
		return line
	}
	return body
}

// DisableLines is shorthand for a Disable toggler.
func DisableLines(label, file, pattern string, versions version.Range, platform models.Platform) LineToggler {
	return LineToggler{
		Label:    label,
		File:     file,
		Pattern:  regexp.MustCompile(pattern),
		Mode:     Disable,
		Versions: versions,
		Platform: platform,
	}
}

// EnableLines is shorthand for an Enable toggler.
func EnableLines(label, file, pattern string, versions version.Range, platform models.Platform) LineToggler {
	t := DisableLines(label, file, pattern, versions, platform)
	t.Mode = Enable
	return t
}
