package ioutils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots   = regexp.MustCompile(`\.+$`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFileName replaces the characters that are invalid in a file name
// (<>:"/\|?* and control chars 0x00-0x1f) with '_'. Nothing else changes,
// so distinct names stay distinct.
//
//	SanitizeFileName("A01: Speed?")   // Returns "A01_ Speed_"
//	SanitizeFileName("Race.")         // Returns "Race."
func SanitizeFileName(name string) string {
	return invalidChars.ReplaceAllString(name, "_")
}

// SanitizeFolderName is SanitizeFileName for a name used as the last
// element of a path. Runs of whitespace collapse to a single space and
// trailing dots and spaces are removed (Windows limitation).
//
//	SanitizeFolderName("Speed:  Pack...")   // Returns "Speed_ Pack"
func SanitizeFolderName(name string) string {
	name = SanitizeFileName(name)
	name = repeatedSpaces.ReplaceAllString(name, " ")
	name = trailingDots.ReplaceAllString(strings.TrimRight(name, " "), "")
	return strings.TrimRight(name, " ")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with mode 0755.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFile writes data to path with mode 0644, creating the parent
// directory first.
func WriteFile(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
