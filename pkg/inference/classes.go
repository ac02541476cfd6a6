package inference

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/sirupsen/logrus"
)

// LoadClassNames read classes.txt, one class name per line, line order is the
// label id.
func LoadClassNames(splitsDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(splitsDir, config.ClassesFileName))
	if err != nil {
		return nil, err
	}
	return splitLines(string(data)), nil
}

// LoadClassInfo read the optional info.txt, one metadata line per class in
// classes.txt order. A missing file or a length mismatch with the class list
// degrades to all-empty metadata, never a partial application.
func LoadClassInfo(splitsDir string, numClasses int) []string {
	empty := make([]string, numClasses)
	data, err := os.ReadFile(filepath.Join(splitsDir, config.InfoFileName))
	if err != nil {
		return empty
	}
	info := splitLines(string(data))
	if len(info) != numClasses {
		logrus.Warnf("info.txt has %d lines but classes.txt has %d, class metadata disabled until this is fixed",
			len(info), numClasses)
		return empty
	}
	return info
}

func splitLines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	// drop trailing empty lines
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
