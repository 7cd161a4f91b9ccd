// Package wire assembles the store and its adapters for the command
// surface. Configuration is resolved once per process; the store itself
// is opened per invocation because it holds the data directory's writer
// lock.
package wire

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/example/braid/internal/adapters/filesystem"
	"github.com/example/braid/internal/adapters/gitbranch"
	"github.com/example/braid/internal/adapters/gitnotes"
	"github.com/example/braid/internal/adapters/sqlite"
	"github.com/example/braid/internal/app"
	"github.com/example/braid/internal/config"
	"github.com/example/braid/internal/ports/secondary"
)

var (
	once    sync.Once
	cfg     *config.Config
	root    string
	initErr error
)

func resolve() {
	root, initErr = os.Getwd()
	if initErr != nil {
		initErr = fmt.Errorf("failed to resolve working directory: %w", initErr)
		return
	}
	cfg, initErr = config.Load(root)
}

// Config returns the per-repository configuration.
func Config() (*config.Config, error) {
	once.Do(resolve)
	if initErr != nil {
		return nil, initErr
	}
	return cfg, nil
}

// Root returns the repository root (the working directory).
func Root() (string, error) {
	once.Do(resolve)
	if initErr != nil {
		return "", initErr
	}
	return root, nil
}

// DataDir resolves the local data directory for the repository.
func DataDir() (string, error) {
	c, err := Config()
	if err != nil {
		return "", err
	}
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	r, err := Root()
	if err != nil {
		return "", err
	}
	backend, err := filesystem.NewForRepo("", r)
	if err != nil {
		return "", err
	}
	return backend.Root(), nil
}

// OpenStore opens the single-writer store with its sqlite index cache.
// The caller must Close it.
func OpenStore() (*app.Store, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	cache, err := sqlite.Open(filepath.Join(dir, sqlite.FileName))
	if err != nil {
		return nil, err
	}
	store, err := app.Open(dir, app.Options{Cache: cache})
	if err != nil {
		cache.Close()
		return nil, err
	}
	return store, nil
}

// Backend constructs a backend by kind tag, used by migration.
func Backend(kind string) (secondary.Backend, error) {
	c, err := Config()
	if err != nil {
		return nil, err
	}
	r, err := Root()
	if err != nil {
		return nil, err
	}
	switch kind {
	case secondary.BackendFile:
		dir, err := DataDir()
		if err != nil {
			return nil, err
		}
		return filesystem.New(dir), nil
	case secondary.BackendBranch:
		return gitbranch.New(r, c.GitRef), nil
	case secondary.BackendNotes:
		return gitnotes.New(r), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q (want file, branch, or notes)", kind)
	}
}
