package fileurl

import (
	"os"
	"path/filepath"
	"strings"
)

// IsExist checks whether the path exists.
func IsExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil || os.IsExist(err)
}

// IsDir determines whether the given path is a directory.
func IsDir(path string) bool {
	s, err := os.Stat(path)
	if err != nil {
		return false
	}
	return s.IsDir()
}

// CreatePath creates the parent directory chain for a file path.
func CreatePath(path string, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, perm)
}

// GetExePath returns the directory of the running executable.
func GetExePath() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// PathSuffixCheckAdd appends the suffix when the path is non-empty and
// does not already end with it.
func PathSuffixCheckAdd(path string, suffix string) string {
	if path == "" {
		return ""
	}
	if !strings.HasSuffix(path, suffix) {
		return path + suffix
	}
	return path
}
