// Package local_fs stores backup blobs on the local filesystem.
package local_fs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"
)

// Config local filesystem target configuration
type Config struct {
	SavePath   string `yaml:"save-path"`
	CustomPath string `yaml:"custom-path"`
}

type LocalFS struct {
	Config *Config
}

// NewClient creates a local filesystem target.
func NewClient(conf *Config) (*LocalFS, error) {
	if conf.SavePath == "" {
		return nil, errors.New("local_fs: save path is required")
	}
	return &LocalFS{Config: conf}, nil
}

func (l *LocalFS) SendContent(pathKey string, content []byte) (string, error) {
	pathKey = fileurl.PathSuffixCheckAdd(l.Config.CustomPath, "/") + pathKey
	full := filepath.Join(l.Config.SavePath, pathKey)

	if err := fileurl.CreatePath(full, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	if err := os.WriteFile(full, content, 0644); err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	return pathKey, nil
}

func (l *LocalFS) Delete(pathKey string) error {
	pathKey = fileurl.PathSuffixCheckAdd(l.Config.CustomPath, "/") + pathKey
	err := os.Remove(filepath.Join(l.Config.SavePath, pathKey))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "local_fs")
	}
	return nil
}
