package customizer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

var gcSelector = regexp.MustCompile(`^-XX:[+-]Use\w+GC$`)

// JVMOptionsFile is conf/jvm.options before 4.0 and conf/jvm-server.options from 4.0.
func JVMOptionsFile(v version.Version) string {
	if v.AtLeast(version.New(4, 0)) {
		return filepath.Join("conf", "jvm-server.options")
	}
	return filepath.Join("conf", "jvm.options")
}

// JVMOptions disables options in the server's options file that the caller
// overrides, so the values passed through JVM_EXTRA_OPTS are not contradicted.
// Choosing any collector disables every collector chosen by the file.
type JVMOptions struct{}

func (JVMOptions) Name() string { return "jvm-options" }

func (JVMOptions) Applies(v version.Version, _ models.Platform) bool {
	return v.AtLeast(version.New(3, 0))
}

func (j JVMOptions) Apply(root string, c Context) error {
	overrides := c.Settings.JVMExtraOpts()
	if len(overrides) == 0 {
		return nil
	}
	keys := make(map[string]bool, len(overrides))
	gcChosen := false
	for _, opt := range overrides {
		keys[optionKey(opt)] = true
		if gcSelector.MatchString(opt) {
			gcChosen = true
		}
	}
	return rewriteFile(j.Name(), filepath.Join(root, JVMOptionsFile(c.Version)), func(data []byte) ([]byte, error) {
		lines, trailing := splitLines(data)
		for i, line := range lines {
			opt := strings.TrimSpace(line)
			if opt == "" || strings.HasPrefix(opt, "#") {
				continue
			}
			if keys[optionKey(opt)] || (gcChosen && gcSelector.MatchString(opt)) {
				lines[i] = Marker + line
			}
		}
		return joinLines(lines, trailing), nil
	})
}

// optionKey identifies what an option configures, ignoring its value:
// -Xmx512m -> -Xmx, -XX:+UseG1GC -> -XX:UseG1GC, -Dfoo=bar -> -Dfoo.
func optionKey(opt string) string {
	opt = strings.TrimSpace(opt)
	switch {
	case strings.HasPrefix(opt, "-XX:"):
		body := strings.TrimPrefix(opt, "-XX:")
		body = strings.TrimLeft(body, "+-")
		name, _, _ := strings.Cut(body, "=")
		return "-XX:" + name
	case strings.HasPrefix(opt, "-D"):
		name, _, _ := strings.Cut(opt, "=")
		return name
	case strings.HasPrefix(opt, "-Xmx"), strings.HasPrefix(opt, "-Xms"),
		strings.HasPrefix(opt, "-Xmn"), strings.HasPrefix(opt, "-Xss"):
		return opt[:4]
	default:
		name, _, _ := strings.Cut(opt, "=")
		name, _, _ = strings.Cut(name, ":")
		return name
	}
}
