// Package webdav uploads backup blobs to a WebDAV server.
package webdav

import (
	"os"
	"path"
	"sync"

	"github.com/pkg/errors"
	"github.com/studio-b12/gowebdav"

	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"
)

// Config WebDAV target configuration
type Config struct {
	Endpoint   string `yaml:"endpoint"`
	Path       string `yaml:"path"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	CustomPath string `yaml:"custom-path"`
}

type WebDAV struct {
	Client *gowebdav.Client
	Config *Config
}

var (
	clientsMu sync.Mutex
	clients   = make(map[string]*WebDAV)
)

// NewClient creates a WebDAV client, reusing one per endpoint and user.
func NewClient(conf *Config) (*WebDAV, error) {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	key := conf.Endpoint + conf.Path + conf.User + conf.CustomPath
	if c := clients[key]; c != nil {
		return c, nil
	}

	c := gowebdav.NewClient(conf.Endpoint, conf.User, conf.Password)
	if err := c.Connect(); err != nil {
		return nil, errors.Wrap(err, "webdav")
	}

	clients[key] = &WebDAV{
		Client: c,
		Config: conf,
	}
	return clients[key], nil
}

// SendContent uploads binary content, creating parent directories as
// needed.
func (w *WebDAV) SendContent(pathKey string, content []byte) (string, error) {
	pathKey = fileurl.PathSuffixCheckAdd(w.Config.CustomPath, "/") + pathKey

	if dir := path.Dir(pathKey); dir != "." && dir != "/" {
		if err := w.Client.MkdirAll(dir, 0644); err != nil {
			return "", errors.Wrap(err, "webdav")
		}
	}

	if err := w.Client.Write(pathKey, content, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "webdav")
	}
	return pathKey, nil
}

func (w *WebDAV) Delete(pathKey string) error {
	pathKey = fileurl.PathSuffixCheckAdd(w.Config.CustomPath, "/") + pathKey
	return errors.Wrap(w.Client.Remove(pathKey), "webdav")
}
