package customizer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
)

// rewriteFile reads path, lets patch compute the new content and replaces
// the file atomically when the content changed.
func rewriteFile(customizer, path string, patch func([]byte) ([]byte, error)) error {
	info, err := os.Stat(path)
	if err != nil {
		return errdefs.NewFileError(customizer, path, err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return errdefs.NewFileError(customizer, path, err)
	}
	updated, err := patch(original)
	if err != nil {
		return errdefs.NewFileError(customizer, path, err)
	}
	if bytes.Equal(original, updated) {
		return nil
	}
	if logger.Enabled(zerolog.DebugLevel) {
		logger.Debugf("Customizer '%s' changed %s:\n%s", customizer, path, unifiedDiff(path, original, updated))
	}
	if err := writeFileAtomic(path, updated, info.Mode().Perm()); err != nil {
		return errdefs.NewFileError(customizer, path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".customizer-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func unifiedDiff(path string, original, updated []byte) string {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(updated)),
		FromFile: path,
		ToFile:   path + " (customized)",
		Context:  2,
	}
	diff, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Sprintf("<diff unavailable: %v>", err)
	}
	return strings.TrimSpace(diff)
}

// splitLines keeps the trailing-newline state so joinLines restores it exactly.
func splitLines(data []byte) ([]string, bool) {
	text := string(data)
	trailing := strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" && !trailing {
		return nil, false
	}
	return strings.Split(text, "\n"), trailing
}

func joinLines(lines []string, trailing bool) []byte {
	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	return []byte(out)
}
